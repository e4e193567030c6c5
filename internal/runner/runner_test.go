package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/filter"
)

func TestRunReportsPassAndFail(t *testing.T) {
	// The file path becomes $0, so the exit code is controlled by -c.
	cfg := &config.Config{
		RunnerCommand: "sh",
		RunnerArgs:    []string{"-c", `case "$0" in *pass*) exit 0;; *) exit 1;; esac`},
		Parallelism:   2,
	}

	r := New(cfg, zap.NewNop())

	files := []filter.CandidateFile{
		{Path: "tests/pass-a.js"},
		{Path: "tests/fail-b.js"},
		{Path: "tests/pass-c.js"},
	}

	results, err := r.Run(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Input order is preserved despite parallel execution.
	assert.Equal(t, "tests/pass-a.js", results[0].Path)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "tests/fail-b.js", results[1].Path)
	assert.False(t, results[1].Passed)
	assert.True(t, results[2].Passed)

	assert.Equal(t, 1, Failed(results))
}

func TestRunCapturesOutput(t *testing.T) {
	cfg := &config.Config{
		RunnerCommand: "sh",
		RunnerArgs:    []string{"-c", `echo "running $0"`},
		Parallelism:   1,
	}

	r := New(cfg, zap.NewNop())
	results, err := r.Run(context.Background(), []filter.CandidateFile{{Path: "a.js"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Output, "running a.js")
}

func TestRunMissingCommand(t *testing.T) {
	cfg := &config.Config{
		RunnerCommand: "testgate-no-such-binary",
		Parallelism:   1,
	}

	r := New(cfg, zap.NewNop())
	_, err := r.Run(context.Background(), []filter.CandidateFile{{Path: "a.js"}})
	assert.Error(t, err)
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/fsx"
)

func testApp(cfg *config.Config) *App {
	return &App{Config: cfg, Logger: zap.NewNop(), FS: fsx.OS{}}
}

func resolvedPlan(t *testing.T, opts RunOptions) []string {
	t.Helper()

	p := testApp(&config.Config{}).NewPipeline(opts)
	g, targets, err := p.graph()
	require.NoError(t, err)

	plan, err := g.Resolve(targets...)
	require.NoError(t, err)
	return plan
}

func TestGraphDefaultPlan(t *testing.T) {
	plan := resolvedPlan(t, RunOptions{})
	assert.Equal(t, []string{"gate", "collect", "filter", "run", "record"}, plan)
}

func TestGraphOptionalStagesAbsentByDefault(t *testing.T) {
	p := testApp(&config.Config{}).NewPipeline(RunOptions{})
	g, _, err := p.graph()
	require.NoError(t, err)

	_, err = g.Resolve("build")
	assert.Error(t, err)
	_, err = g.Resolve("instrument")
	assert.Error(t, err)
	_, err = g.Resolve("report")
	assert.Error(t, err)
}

func TestGraphBuildPlan(t *testing.T) {
	plan := resolvedPlan(t, RunOptions{Build: true})
	assert.Equal(t, []string{"gate", "build", "collect", "filter", "run", "record"}, plan)
}

func TestGraphCoveragePlan(t *testing.T) {
	plan := resolvedPlan(t, RunOptions{Coverage: true})
	assert.Equal(t, []string{"gate", "collect", "filter", "instrument", "run", "record", "report"}, plan)
}

func TestGraphBuildAndCoveragePlan(t *testing.T) {
	plan := resolvedPlan(t, RunOptions{Build: true, Coverage: true})
	assert.Equal(t, []string{"gate", "build", "collect", "filter", "instrument", "run", "record", "report"}, plan)
}

func TestRunGateFailureAbortsBeforeCollection(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.js"), []byte("test a"), 0644))

	cfg := &config.Config{
		BuildDir:       dir,
		SourceSuffix:   ".js",
		MinNodeVersion: "999.0.0",
		Parallelism:    1,
	}

	p := testApp(cfg).NewPipeline(RunOptions{})
	err := p.Run(context.Background())
	require.Error(t, err)

	// Whether node is absent or merely older than the minimum, the gate
	// stops the run before any candidate file is read.
	assert.Empty(t, p.files)
	assert.Empty(t, p.Selected())
	assert.Empty(t, p.Results())
	assert.Empty(t, p.RunID())
}

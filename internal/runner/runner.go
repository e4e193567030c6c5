package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/filter"
)

// Result is the outcome of executing one test file.
type Result struct {
	Path     string
	Passed   bool
	Output   string
	Duration time.Duration
}

// Runner executes selected test files through the external runner command.
type Runner struct {
	command     string
	args        []string
	parallelism int
	logger      *zap.Logger
}

// New creates a runner from the configuration.
func New(cfg *config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		command:     cfg.RunnerCommand,
		args:        cfg.RunnerArgs,
		parallelism: cfg.Parallelism,
		logger:      logger,
	}
}

// Run executes every file through the runner command, appending the file
// path as the final argument. A non-zero exit is a test failure, not a
// harness error; only a runner that cannot start at all aborts the run.
// Files run with bounded parallelism but results keep input order.
func (r *Runner) Run(ctx context.Context, files []filter.CandidateFile) ([]Result, error) {
	results := make([]Result, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := r.runOne(ctx, f.Path)
			if err != nil {
				return err
			}
			results[i] = res

			r.logger.Info("test finished",
				zap.String("path", res.Path),
				zap.Bool("passed", res.Passed),
				zap.Duration("duration", res.Duration))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, path string) (Result, error) {
	args := append(append([]string{}, r.args...), path)
	cmd := exec.CommandContext(ctx, r.command, args...)

	start := time.Now()
	out, err := cmd.CombinedOutput()

	res := Result{
		Path:     path,
		Output:   string(out),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("failed to run %s: %w", path, err)
		}
		return res, nil
	}

	res.Passed = true
	return res, nil
}

// Failed counts the failing results.
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if !res.Passed {
			n++
		}
	}
	return n
}

package app

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/collector"
	"github.com/baziar/testgate/internal/coverage"
	"github.com/baziar/testgate/internal/filter"
	"github.com/baziar/testgate/internal/runner"
	"github.com/baziar/testgate/internal/storage"
	"github.com/baziar/testgate/internal/tasks"
	"github.com/baziar/testgate/internal/version"
)

// RunOptions select the optional pipeline stages.
type RunOptions struct {
	Build    bool
	Coverage bool
}

// Pipeline is one selection-and-run cycle. Intermediate state flows between
// the tasks of the graph through the pipeline itself.
type Pipeline struct {
	app  *App
	opts RunOptions

	startedAt time.Time
	files     []filter.CandidateFile
	selected  []filter.CandidateFile
	results   []runner.Result
	runID     string
}

// NewPipeline prepares a pipeline for one run.
func (a *App) NewPipeline(opts RunOptions) *Pipeline {
	return &Pipeline{app: a, opts: opts}
}

// Results returns the per-file outcomes of the last Run.
func (p *Pipeline) Results() []runner.Result { return p.results }

// Selected returns the files that survived filtering in the last Run.
func (p *Pipeline) Selected() []filter.CandidateFile { return p.selected }

// RunID returns the recorded history ID of the last Run.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes the full pipeline: version gate, optional build, candidate
// collection, test selection, optional coverage instrumentation, execution,
// history recording and the optional coverage report. A failing test is not
// an error here; callers inspect Results.
func (p *Pipeline) Run(ctx context.Context) error {
	g, targets, err := p.graph()
	if err != nil {
		return err
	}
	return g.Execute(ctx, p.app.Logger, targets...)
}

// graph assembles the task graph for this run. Optional stages are extra
// nodes with declared predecessors, not conditional calls buried in the run
// sequence.
func (p *Pipeline) graph() (*tasks.Graph, []string, error) {
	g := tasks.NewGraph()

	collectNeeds := []string{"gate"}
	runNeeds := []string{"filter"}
	targets := []string{"record"}

	if p.opts.Build {
		collectNeeds = append(collectNeeds, "build")
	}
	if p.opts.Coverage {
		runNeeds = append(runNeeds, "instrument")
		targets = append(targets, "report")
	}

	steps := []tasks.Task{
		{Name: "gate", Run: p.gate},
		{Name: "collect", Needs: collectNeeds, Run: p.collect},
		{Name: "filter", Needs: []string{"collect"}, Run: p.filter},
		{Name: "run", Needs: runNeeds, Run: p.run},
		{Name: "record", Needs: []string{"run"}, Run: p.record},
	}
	if p.opts.Build {
		steps = append(steps, tasks.Task{Name: "build", Needs: []string{"gate"}, Run: p.build})
	}
	if p.opts.Coverage {
		steps = append(steps,
			tasks.Task{Name: "instrument", Needs: []string{"filter"}, Run: p.instrument},
			tasks.Task{Name: "report", Needs: []string{"run"}, Run: p.report},
		)
	}

	for _, t := range steps {
		if err := g.Add(t); err != nil {
			return nil, nil, err
		}
	}
	return g, targets, nil
}

// gate aborts the whole run before any file is processed when the local
// Node.js runtime is older than the configured minimum.
func (p *Pipeline) gate(ctx context.Context) error {
	p.startedAt = time.Now().UTC()

	current, err := version.DetectNode(ctx)
	if err != nil {
		return err
	}
	if err := version.EnsureMinimum(current, p.app.Config.MinNodeVersion); err != nil {
		return err
	}

	p.app.Logger.Debug("runtime version ok",
		zap.String("current", current),
		zap.String("minimum", p.app.Config.MinNodeVersion))
	return nil
}

// build runs the configured pre-test build step in the project root.
func (p *Pipeline) build(ctx context.Context) error {
	cfg := p.app.Config
	cmd := exec.CommandContext(ctx, cfg.BuildCommand, cfg.BuildArgs...)
	cmd.Dir = cfg.ProjectRoot

	p.app.Logger.Info("running build step",
		zap.String("command", cfg.BuildCommand),
		zap.Strings("args", cfg.BuildArgs))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("build step failed: %w\n%s", err, out)
	}
	return nil
}

func (p *Pipeline) collect(ctx context.Context) error {
	c := collector.New(p.app.Config, p.app.FS, p.app.Logger)

	files, err := c.Collect(ctx)
	if err != nil {
		return err
	}
	p.files = files
	return nil
}

func (p *Pipeline) filter(ctx context.Context) error {
	p.selected = filter.Select(p.app.FS, p.files)

	p.app.Logger.Info("test selection complete",
		zap.Int("candidates", len(p.files)),
		zap.Int("selected", len(p.selected)),
		zap.Int("excluded", len(p.files)-len(p.selected)))
	return nil
}

func (p *Pipeline) instrument(ctx context.Context) error {
	return coverage.New(p.app.Config, p.app.Logger).Instrument(ctx)
}

func (p *Pipeline) run(ctx context.Context) error {
	r := runner.New(p.app.Config, p.app.Logger)

	results, err := r.Run(ctx, p.selected)
	if err != nil {
		return err
	}
	p.results = results

	p.app.Logger.Info("run complete",
		zap.Int("total", len(results)),
		zap.Int("failed", runner.Failed(results)))
	return nil
}

func (p *Pipeline) record(ctx context.Context) error {
	failed := runner.Failed(p.results)

	id, err := p.app.DB.RecordRun(storage.Run{
		StartedAt:  p.startedAt,
		FinishedAt: time.Now().UTC(),
		Total:      len(p.results),
		Passed:     len(p.results) - failed,
		Failed:     failed,
		Coverage:   p.opts.Coverage,
	}, p.results)
	if err != nil {
		return err
	}
	p.runID = id
	return nil
}

func (p *Pipeline) report(ctx context.Context) error {
	return coverage.New(p.app.Config, p.app.Logger).WriteReport(p.results)
}

// SelectOnly collects and filters without the gate or execution; used by the
// list command.
func (p *Pipeline) SelectOnly(ctx context.Context) ([]filter.CandidateFile, error) {
	if err := p.collect(ctx); err != nil {
		return nil, err
	}
	if err := p.filter(ctx); err != nil {
		return nil, err
	}
	return p.selected, nil
}

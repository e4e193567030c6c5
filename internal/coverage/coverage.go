package coverage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/runner"
)

// Instrumenter wraps test execution with coverage instrumentation. The
// instrumentation tool itself is external; testgate only invokes it and
// writes a per-file summary report.
type Instrumenter struct {
	command    string
	args       []string
	buildDir   string
	reportPath string
	logger     *zap.Logger
}

// New creates an instrumenter from the configuration.
func New(cfg *config.Config, logger *zap.Logger) *Instrumenter {
	return &Instrumenter{
		command:    cfg.InstrumentCommand,
		args:       cfg.InstrumentArgs,
		buildDir:   cfg.BuildDir,
		reportPath: cfg.CoverageReport,
		logger:     logger,
	}
}

// Instrument runs the external instrumentation command over the build tree.
func (c *Instrumenter) Instrument(ctx context.Context) error {
	args := append(append([]string{}, c.args...), c.buildDir)
	cmd := exec.CommandContext(ctx, c.command, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("coverage instrumentation failed: %w\n%s", err, out)
	}

	c.logger.Info("coverage instrumentation complete", zap.String("dir", c.buildDir))
	return nil
}

type fileReport struct {
	Passed     bool  `json:"passed"`
	DurationMS int64 `json:"duration_ms"`
}

// WriteReport writes a JSON coverage summary keyed by source file path.
func (c *Instrumenter) WriteReport(results []runner.Result) error {
	report := make(map[string]fileReport, len(results))
	for _, res := range results {
		report[res.Path] = fileReport{
			Passed:     res.Passed,
			DurationMS: res.Duration.Milliseconds(),
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode coverage report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.reportPath), 0755); err != nil {
		return fmt.Errorf("failed to create coverage directory: %w", err)
	}
	if err := os.WriteFile(c.reportPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write coverage report: %w", err)
	}

	c.logger.Info("coverage report written", zap.String("path", c.reportPath))
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/app"
	"github.com/baziar/testgate/internal/runner"
	"github.com/baziar/testgate/internal/storage"
	"github.com/baziar/testgate/internal/version"
	"github.com/baziar/testgate/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "testgate",
	Short: "testgate - automated test selection and execution",
	Long: `testgate walks a compiled test tree, excludes manual tests (those with a
same-named documentation file) and browser-only tests (those carrying a
bender-tags comment), and feeds the survivors to the external test runner.`,
	SilenceUsage: true,
}

var (
	flagBuild    bool
	flagCoverage bool
	flagWatch    bool
	flagLimit    int
)

func init() {
	runCmd.Flags().BoolVar(&flagBuild, "build", false, "run the pre-test build step first")
	runCmd.Flags().BoolVar(&flagCoverage, "coverage", false, "instrument the build tree and write a coverage report")
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "re-run automatically when the build tree changes")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 20, "number of runs to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select and execute the automated tests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New()
		if err != nil {
			return err
		}
		defer a.Close()

		opts := app.RunOptions{Build: flagBuild, Coverage: flagCoverage}

		runOnce := func(ctx context.Context) error {
			p := a.NewPipeline(opts)
			if err := p.Run(ctx); err != nil {
				return err
			}
			if failed := runner.Failed(p.Results()); failed > 0 {
				return fmt.Errorf("%d of %d tests failed", failed, len(p.Results()))
			}
			return nil
		}

		if flagWatch {
			if err := runOnce(cmd.Context()); err != nil {
				a.Logger.Error("run failed", zap.Error(err))
			}
			err := watch.New(a.Config.BuildDir, a.Logger).Watch(cmd.Context(), runOnce)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		return runOnce(cmd.Context())
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the test files that would be executed, without running them",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New()
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := a.NewPipeline(app.RunOptions{}).SelectOnly(cmd.Context())
		if err != nil {
			return err
		}

		for _, f := range files {
			fmt.Println(f.Path)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent test runs, or the per-file results of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 1 {
			results, err := a.DB.RunResults(args[0])
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Printf("No results recorded for run %s.\n", args[0])
				return nil
			}
			fmt.Print(formatRunDetail(results))
			return nil
		}

		runs, err := a.DB.ListRuns(flagLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		fmt.Print(formatRunsTable(runs))
		return nil
	},
}

// formatRunsTable renders the run overview table, newest first.
func formatRunsTable(runs []storage.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-20s  %6s  %6s  %6s  %-8s\n", "RUN", "STARTED", "TOTAL", "PASSED", "FAILED", "COVERAGE")
	for _, r := range runs {
		cov := ""
		if r.Coverage {
			cov = "yes"
		}
		fmt.Fprintf(&b, "%-36s  %-20s  %6d  %6d  %6d  %-8s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Total, r.Passed, r.Failed, cov)
	}
	return b.String()
}

// formatRunDetail renders the per-file results of a single run.
func formatRunDetail(results []runner.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-6s  %12s  %s\n", "STATUS", "DURATION", "PATH")
	for _, res := range results {
		status := "FAIL"
		if res.Passed {
			status = "PASS"
		}
		fmt.Fprintf(&b, "%-6s  %12s  %s\n", status, res.Duration, res.Path)
	}
	return b.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("testgate v%s\n", version.Version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

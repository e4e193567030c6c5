package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBuildDir        = "build/tests"
	DefaultSourceSuffix    = ".js"
	DefaultRunnerCommand   = "node"
	DefaultBuildCommand    = "npm"
	DefaultParallelism     = 4
	DefaultMinNodeVersion  = "6.1.0"
	DefaultCoverageCommand = "nyc"
	DefaultCoverageReport  = "coverage/testgate.json"
	DefaultDBPath          = ".testgate/history.db"
	DefaultLogLevel        = "info"

	configFileName = "testgate.toml"
)

// Config holds the resolved testgate configuration.
type Config struct {
	ProjectRoot string

	// Candidate collection
	BuildDir     string
	SourceSuffix string
	IgnoreDirs   []string

	// Optional pre-test build step
	BuildCommand string
	BuildArgs    []string

	// Test execution
	RunnerCommand string
	RunnerArgs    []string
	Parallelism   int

	// Coverage instrumentation
	InstrumentCommand string
	InstrumentArgs    []string
	CoverageReport    string

	// Runtime gate
	MinNodeVersion string

	// Run history
	DBPath string

	LogLevel string
	LogFile  string
}

// fileConfig mirrors the on-disk testgate.toml layout.
type fileConfig struct {
	Build struct {
		Dir          string   `toml:"dir"`
		SourceSuffix string   `toml:"source_suffix"`
		IgnoreDirs   []string `toml:"ignore_dirs"`
		Command      string   `toml:"command"`
		Args         []string `toml:"args"`
	} `toml:"build"`
	Runner struct {
		Command     string   `toml:"command"`
		Args        []string `toml:"args"`
		Parallelism int      `toml:"parallelism"`
	} `toml:"runner"`
	Coverage struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
		Report  string   `toml:"report"`
	} `toml:"coverage"`
	Runtime struct {
		MinNodeVersion string `toml:"min_node_version"`
	} `toml:"runtime"`
	Storage struct {
		DBPath string `toml:"db_path"`
	} `toml:"storage"`
	Logging struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"logging"`
}

// Load builds the configuration from defaults, an optional testgate.toml in
// the project root and TESTGATE_* environment overrides, in that order.
func Load() (*Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine project root: %w", err)
	}
	return LoadFrom(root)
}

// LoadFrom is Load with an explicit project root, used by tests.
func LoadFrom(root string) (*Config, error) {
	cfg := defaults(root)

	if err := applyFile(cfg, filepath.Join(root, configFileName)); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	cfg.BuildDir = resolve(root, cfg.BuildDir)
	cfg.CoverageReport = resolve(root, cfg.CoverageReport)
	cfg.DBPath = resolve(root, cfg.DBPath)
	if cfg.LogFile != "" {
		cfg.LogFile = resolve(root, cfg.LogFile)
	}

	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	return cfg, nil
}

func defaults(root string) *Config {
	return &Config{
		ProjectRoot:       root,
		BuildDir:          DefaultBuildDir,
		SourceSuffix:      DefaultSourceSuffix,
		IgnoreDirs:        []string{"node_modules", ".git"},
		BuildCommand:      DefaultBuildCommand,
		BuildArgs:         []string{"run", "build"},
		RunnerCommand:     DefaultRunnerCommand,
		RunnerArgs:        nil,
		Parallelism:       DefaultParallelism,
		InstrumentCommand: DefaultCoverageCommand,
		InstrumentArgs:    []string{"instrument"},
		CoverageReport:    DefaultCoverageReport,
		MinNodeVersion:    DefaultMinNodeVersion,
		DBPath:            DefaultDBPath,
		LogLevel:          DefaultLogLevel,
	}
}

// applyFile overlays values from the TOML config file if it exists. A missing
// file is not an error; a malformed one is.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Build.Dir != "" {
		cfg.BuildDir = fc.Build.Dir
	}
	if fc.Build.SourceSuffix != "" {
		cfg.SourceSuffix = fc.Build.SourceSuffix
	}
	if len(fc.Build.IgnoreDirs) > 0 {
		cfg.IgnoreDirs = fc.Build.IgnoreDirs
	}
	if fc.Build.Command != "" {
		cfg.BuildCommand = fc.Build.Command
		cfg.BuildArgs = fc.Build.Args
	}
	if fc.Runner.Command != "" {
		cfg.RunnerCommand = fc.Runner.Command
		cfg.RunnerArgs = fc.Runner.Args
	}
	if fc.Runner.Parallelism > 0 {
		cfg.Parallelism = fc.Runner.Parallelism
	}
	if fc.Coverage.Command != "" {
		cfg.InstrumentCommand = fc.Coverage.Command
		cfg.InstrumentArgs = fc.Coverage.Args
	}
	if fc.Coverage.Report != "" {
		cfg.CoverageReport = fc.Coverage.Report
	}
	if fc.Runtime.MinNodeVersion != "" {
		cfg.MinNodeVersion = fc.Runtime.MinNodeVersion
	}
	if fc.Storage.DBPath != "" {
		cfg.DBPath = fc.Storage.DBPath
	}
	if fc.Logging.Level != "" {
		cfg.LogLevel = fc.Logging.Level
	}
	if fc.Logging.File != "" {
		cfg.LogFile = fc.Logging.File
	}

	return nil
}

// applyEnv overlays TESTGATE_* environment variables on top of file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TESTGATE_BUILD_DIR"); v != "" {
		cfg.BuildDir = v
	}
	if fields := strings.Fields(os.Getenv("TESTGATE_RUNNER")); len(fields) > 0 {
		cfg.RunnerCommand = fields[0]
		cfg.RunnerArgs = fields[1:]
	}
	if v := os.Getenv("TESTGATE_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Parallelism = n
		}
	}
	if v := os.Getenv("TESTGATE_MIN_NODE_VERSION"); v != "" {
		cfg.MinNodeVersion = v
	}
	if v := os.Getenv("TESTGATE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TESTGATE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TESTGATE_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

func resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

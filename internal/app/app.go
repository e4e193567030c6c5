package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/baziar/testgate/internal/config"
	"github.com/baziar/testgate/internal/fsx"
	"github.com/baziar/testgate/internal/logging"
	"github.com/baziar/testgate/internal/storage"
)

// App holds the core components shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *storage.DB
	FS     fsx.FS
}

// New loads the configuration and initializes the logger and the run-history
// database.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to open run history database", zap.Error(err))
		return nil, fmt.Errorf("failed to open run history database: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		FS:     fsx.OS{},
	}, nil
}

// Close releases the application resources.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Failed to close run history database", zap.Error(err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

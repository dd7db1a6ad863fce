package bank

import (
	"context"
	"time"

	"github.com/sm-moshi/membank/internal/config"
	"github.com/sm-moshi/membank/internal/logger"
)

// Engine bundles a Core with the logger it writes to and the optional
// watcher and maintenance runner described by a loaded configuration.
// It is the entry point for hosts that configure the store from a file
// rather than assembling CoreConfig themselves.
type Engine struct {
	Core *Core

	watcher     *Watcher
	maintenance *Maintenance
	log         *logger.Logger
}

// Open loads configuration from configPath (the default location under
// the user's home directory when empty) and builds an engine from it.
func Open(ctx context.Context, configPath string) (*Engine, error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, opError(CodeInvalidArgument, "open", configPath, err)
	}
	return OpenWith(ctx, cfg)
}

// OpenWith builds an engine from an already loaded configuration. The
// root folders are created and, when configured, the watcher and the
// maintenance schedule are started. The caller still runs LoadFiles.
func OpenWith(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, opError(CodeInvalidArgument, "open", cfg.Root, err)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, opError(CodeInvalidArgument, "open", cfg.Logging.File, err)
	}

	core, err := NewCore(CoreConfig{
		Root: cfg.Root,
		Cache: CacheConfig{
			MaxSize: cfg.Cache.MaxSize,
			MaxAge:  time.Duration(cfg.Cache.MaxAgeSecs) * time.Second,
		},
		FileOps: FileOpsConfig{
			MaxAttempts: cfg.FileOps.MaxAttempts,
			RetryDelay:  time.Duration(cfg.FileOps.RetryDelayMs) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.FileOps.MaxDelayMs) * time.Millisecond,
		},
		Logger: log.GetZerolog(),
	})
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	eng := &Engine{Core: core, log: log}

	if err := core.InitializeFolders(ctx); err != nil {
		_ = eng.Close()
		return nil, err
	}

	if cfg.Watcher.Enabled {
		watcher, err := NewWatcher(core, WatcherConfig{
			StabilityThreshold: time.Duration(cfg.Watcher.StabilityMs) * time.Millisecond,
		})
		if err != nil {
			_ = eng.Close()
			return nil, err
		}
		if err := watcher.Start(); err != nil {
			_ = eng.Close()
			return nil, err
		}
		eng.watcher = watcher
	}

	if cfg.Maintenance.SweepSchedule != "" || cfg.Maintenance.HealthSchedule != "" {
		maintenance, err := NewMaintenance(core, MaintenanceConfig{
			SweepSchedule:  cfg.Maintenance.SweepSchedule,
			HealthSchedule: cfg.Maintenance.HealthSchedule,
		})
		if err != nil {
			_ = eng.Close()
			return nil, err
		}
		maintenance.Start()
		eng.maintenance = maintenance
	}

	return eng, nil
}

// Close stops the watcher and maintenance runner, closes the core and
// releases the logger. It reports the first error encountered but
// always runs every step.
func (e *Engine) Close() error {
	var firstErr error

	if e.watcher != nil {
		if err := e.watcher.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.watcher = nil
	}

	if e.maintenance != nil {
		e.maintenance.Stop()
		e.maintenance = nil
	}

	if err := e.Core.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	if e.log != nil {
		if err := e.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.log = nil
	}

	return firstErr
}

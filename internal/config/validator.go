package config

import (
	"fmt"
	"strings"
)

// Validate checks a loaded configuration for values the engine cannot
// run with.
func Validate(cfg *Config) error {
	if cfg.Root == "" {
		return fmt.Errorf("root directory is required")
	}

	if cfg.Cache.MaxSize < 0 {
		return fmt.Errorf("cache max_size cannot be negative, got %d", cfg.Cache.MaxSize)
	}
	if cfg.Cache.MaxAgeSecs < 0 {
		return fmt.Errorf("cache max_age_secs cannot be negative, got %d", cfg.Cache.MaxAgeSecs)
	}

	if cfg.FileOps.MaxAttempts < 0 {
		return fmt.Errorf("file_ops max_attempts cannot be negative, got %d", cfg.FileOps.MaxAttempts)
	}
	if cfg.FileOps.RetryDelayMs < 0 {
		return fmt.Errorf("file_ops retry_delay_ms cannot be negative, got %d", cfg.FileOps.RetryDelayMs)
	}
	if cfg.FileOps.MaxDelayMs < 0 {
		return fmt.Errorf("file_ops max_delay_ms cannot be negative, got %d", cfg.FileOps.MaxDelayMs)
	}

	if cfg.Watcher.StabilityMs < 0 {
		return fmt.Errorf("watcher stability_ms cannot be negative, got %d", cfg.Watcher.StabilityMs)
	}

	if err := validateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}

	return nil
}

func validateLogLevel(level string) error {
	if level == "" {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

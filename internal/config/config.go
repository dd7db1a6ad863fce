package config

// Config represents the engine configuration
type Config struct {
	// Root directory holding the memory bank files
	Root string `json:"root" mapstructure:"root"`

	// Cache settings
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// File operation retry settings
	FileOps FileOpsConfig `json:"file_ops" mapstructure:"file_ops"`

	// Watcher settings
	Watcher WatcherConfig `json:"watcher" mapstructure:"watcher"`

	// Maintenance schedules
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Logging settings
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// CacheConfig holds cache tuning
type CacheConfig struct {
	MaxSize    int `json:"max_size" mapstructure:"max_size"`         // max entries before LRU eviction
	MaxAgeSecs int `json:"max_age_secs" mapstructure:"max_age_secs"` // 0 disables TTL staleness
}

// FileOpsConfig holds retry tuning
type FileOpsConfig struct {
	MaxAttempts  int `json:"max_attempts" mapstructure:"max_attempts"`
	RetryDelayMs int `json:"retry_delay_ms" mapstructure:"retry_delay_ms"`
	MaxDelayMs   int `json:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// WatcherConfig holds external-change watcher settings
type WatcherConfig struct {
	Enabled     bool `json:"enabled" mapstructure:"enabled"`
	StabilityMs int  `json:"stability_ms" mapstructure:"stability_ms"`
}

// MaintenanceConfig holds cron schedules for background upkeep
type MaintenanceConfig struct {
	SweepSchedule  string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
	HealthSchedule string `json:"health_schedule" mapstructure:"health_schedule"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxSize:    64,
			MaxAgeSecs: 0,
		},
		FileOps: FileOpsConfig{
			MaxAttempts:  3,
			RetryDelayMs: 100,
			MaxDelayMs:   2000,
		},
		Watcher: WatcherConfig{
			Enabled:     false,
			StabilityMs: 100,
		},
		Maintenance: MaintenanceConfig{},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}

// Package config loads Cracken configuration from YAML or JSONC files.
package config

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Audit    AuditConfig    `json:"audit" yaml:"audit"`
	Sweeper  SweeperConfig  `json:"sweeper" yaml:"sweeper"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// DatabaseConfig points at the SQLite database file.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// AuditConfig configures the JSONL audit trail.
type AuditConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// SweeperConfig configures the overdue sweeper.
type SweeperConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Cron     string `json:"cron" yaml:"cron"`          // 5-field cron, default hourly
	AutoSkip bool   `json:"auto_skip" yaml:"auto_skip"` // skip inactive current assignees
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level"` // debug | info | warn | error
}

package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds daemon-tunable values read from the process environment.
// There is no file-based configuration layer: the daemon's own config
// surface is limited to what a caller would plausibly override on a
// command line or in a systemd unit.
type Config struct {
	Ring    RingConfig
	Timeout TimeoutConfig
	Logging LogConfig
	Metrics MetricsConfig
}

// RingConfig bounds the per-session scrollback ring buffer.
type RingConfig struct {
	DefaultBytes int `envconfig:"SESSIOND_RING_BYTES" default:"1048576"`
	MaxBytes     int `envconfig:"SESSIOND_RING_MAX_BYTES" default:"67108864"`
}

// TimeoutConfig overrides the daemon's periodic sweep intervals. Defaults
// match the daemon's fixed housekeeping schedule; shrinking them is mainly
// useful for integration tests that can't wait 24 hours for an orphan to
// be reaped. HousekeepingSecs is loaded but not read by the daemon, whose
// housekeeping sweep runs on a fixed one-second tick.
type TimeoutConfig struct {
	OrphanSecs       int `envconfig:"SESSIOND_ORPHAN_TIMEOUT_SECS" default:"86400"`
	DeadKeepSecs     int `envconfig:"SESSIOND_DEAD_KEEP_SECS" default:"60"`
	HeartbeatSecs    int `envconfig:"SESSIOND_HEARTBEAT_TIMEOUT_SECS" default:"90"`
	IdleSecs         int `envconfig:"SESSIOND_IDLE_TIMEOUT_SECS" default:"1800"`
	FgPollSecs       int `envconfig:"SESSIOND_FG_POLL_SECS" default:"2"`
	HousekeepingSecs int `envconfig:"SESSIOND_HOUSEKEEPING_SECS" default:"5"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level       string `envconfig:"SESSIOND_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"SESSIOND_LOG_DEV" default:"false"`
}

// MetricsConfig controls the optional metrics listener.
type MetricsConfig struct {
	Addr    string `envconfig:"SESSIOND_METRICS_ADDR" default:""`
	Enabled bool   `envconfig:"SESSIOND_METRICS_ENABLED" default:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment, falling back to
// defaults if any environment variable fails to parse.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the daemon's built-in configuration.
func Default() *Config {
	return &Config{
		Ring: RingConfig{
			DefaultBytes: 1024 * 1024,
			MaxBytes:     64 * 1024 * 1024,
		},
		Timeout: TimeoutConfig{
			OrphanSecs:       24 * 60 * 60,
			DeadKeepSecs:     60,
			HeartbeatSecs:    90,
			IdleSecs:         30 * 60,
			FgPollSecs:       2,
			HousekeepingSecs: 5,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Addr:    "",
			Enabled: false,
		},
	}
}

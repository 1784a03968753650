package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the recompute daemon.
type Config struct {
	TargetCurrency string         `toml:"target_currency"` // currency valuations are expressed in
	Database       DatabaseConfig `toml:"database"`
	Queue          QueueConfig    `toml:"queue"`
	Logging        LoggingConfig  `toml:"logging"`
}

// DatabaseConfig holds storage configuration. Driver is "postgres" or
// "memory" (memory is for local development and tests only).
type DatabaseConfig struct {
	Driver  string `toml:"driver"`
	ConnStr string `toml:"conn_str"`
}

// QueueConfig holds recompute queue worker configuration.
type QueueConfig struct {
	Workers      int    `toml:"workers"`
	PollInterval string `toml:"poll_interval"`
	BaseBackoff  string `toml:"base_backoff"`
	MaxAttempts  int    `toml:"max_attempts"`
}

// GetPollInterval parses and returns the worker poll interval.
func (c *QueueConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetBaseBackoff parses and returns the base retry backoff.
func (c *QueueConfig) GetBaseBackoff() time.Duration {
	d, err := time.ParseDuration(c.BaseBackoff)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		TargetCurrency: "EUR",
		Database: DatabaseConfig{
			Driver:  "postgres",
			ConnStr: "host=localhost port=5432 user=postgres password=postgres dbname=patrimo sslmode=disable",
		},
		Queue: QueueConfig{
			Workers:      2,
			PollInterval: "1s",
			BaseBackoff:  "30s",
			MaxAttempts:  5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Missing files are skipped; later files override earlier ones.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PATRIMO_TARGET_CURRENCY"); v != "" {
		config.TargetCurrency = v
	}
	if v := os.Getenv("PATRIMO_DB_DRIVER"); v != "" {
		config.Database.Driver = v
	}
	if v := os.Getenv("PATRIMO_DB_CONN_STR"); v != "" {
		config.Database.ConnStr = v
	}
	if v := os.Getenv("PATRIMO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("PATRIMO_QUEUE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Queue.Workers = n
		}
	}
	if v := os.Getenv("PATRIMO_QUEUE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Queue.MaxAttempts = n
		}
	}
}

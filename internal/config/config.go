// Package config implements TOML configuration loading, validation, and
// override resolution for shopbulk. It supports a four-layer override
// chain: defaults -> config file -> environment (including .env) -> CLI
// flags.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Shop    ShopConfig    `toml:"shop"`
	Job     JobConfig     `toml:"job"`
	Logging LoggingConfig `toml:"logging"`
}

// ShopConfig identifies the shop and credentials for the Admin API.
// The access token is usually supplied via environment rather than the
// config file; both work, environment wins.
type ShopConfig struct {
	Domain      string `toml:"domain"`       // e.g. "example.myshopify.com"
	AccessToken string `toml:"access_token"` // Admin API token
	APIVersion  string `toml:"api_version"`  // e.g. "2024-07"
}

// JobConfig controls collection pacing, polling cadence, and timeouts.
type JobConfig struct {
	PageSize     int    `toml:"page_size"`     // products per page, max 250
	PageDelay    string `toml:"page_delay"`    // delay between page fetches
	PollInterval string `toml:"poll_interval"` // status --watch cadence
	HTTPTimeout  string `toml:"http_timeout"`  // per-request HTTP timeout
	HistoryPath  string `toml:"history_path"`  // run ledger DB, empty = default
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Default values.
const (
	DefaultAPIVersion   = "2024-07"
	DefaultPageSize     = 250
	DefaultPageDelay    = 500 * time.Millisecond
	DefaultPollInterval = 2 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	defaultLogLevel     = "info"

	maxPageSize = 250
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Shop: ShopConfig{
			APIVersion: DefaultAPIVersion,
		},
		Job: JobConfig{
			PageSize:     DefaultPageSize,
			PageDelay:    DefaultPageDelay.String(),
			PollInterval: DefaultPollInterval.String(),
			HTTPTimeout:  DefaultHTTPTimeout.String(),
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// Validate checks a Config for internally inconsistent values. Missing
// credentials are not an error here — commands that need the API check
// for them at resolve time with a friendlier message.
func Validate(cfg *Config) error {
	if cfg.Job.PageSize < 0 || cfg.Job.PageSize > maxPageSize {
		return fmt.Errorf("job.page_size must be between 0 and %d, got %d", maxPageSize, cfg.Job.PageSize)
	}

	if cfg.Job.PageDelay != "" {
		if _, err := time.ParseDuration(cfg.Job.PageDelay); err != nil {
			return fmt.Errorf("job.page_delay: %w", err)
		}
	}

	if cfg.Job.PollInterval != "" {
		if _, err := time.ParseDuration(cfg.Job.PollInterval); err != nil {
			return fmt.Errorf("job.poll_interval: %w", err)
		}
	}

	if cfg.Job.HTTPTimeout != "" {
		if _, err := time.ParseDuration(cfg.Job.HTTPTimeout); err != nil {
			return fmt.Errorf("job.http_timeout: %w", err)
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", cfg.Logging.Level)
	}

	if d := cfg.Shop.Domain; d != "" && strings.ContainsAny(d, "/ ") {
		return fmt.Errorf("shop.domain must be a bare hostname, got %q", d)
	}

	return nil
}

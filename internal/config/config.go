package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the root configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Cache    CacheConfig    `yaml:"cache"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
}

// InputConfig points at the funding-rounds table.
type InputConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// OutputConfig controls where and how the scorecard is written.
type OutputConfig struct {
	Path           string `yaml:"path"` // file or directory; empty = scorecard_YYYYMMDD.csv
	FeaturedCutoff int    `yaml:"featured_cutoff" validate:"gte=1"`
}

// CacheConfig selects the enrichment cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file sqlite postgres memory"`
	Dir     string `yaml:"dir"` // file backend
	DSN     string `yaml:"dsn"` // sqlite path or postgres DSN
}

// Location returns the directory or DSN for the configured backend.
func (c CacheConfig) Location() string {
	if c.Backend == "file" || c.Backend == "" {
		return c.Dir
	}
	return c.DSN
}

// EnrichConfig configures the external language/rating fetch.
type EnrichConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Workers       int     `yaml:"workers" validate:"gte=1,lte=64"`
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Timeout       string  `yaml:"timeout"`
	SearchURL     string  `yaml:"search_url"` // fmt template, %s = escaped company name
	UserAgent     string  `yaml:"user_agent"`
}

// ParseTimeout returns the per-fetch timeout as time.Duration.
func (e EnrichConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ScheduleConfig configures the daemon rescoring loop.
type ScheduleConfig struct {
	Interval string `yaml:"interval"`
}

// ParseInterval returns the rescoring interval as time.Duration.
func (s ScheduleConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// AlertsConfig configures where featured lists are posted.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack incoming webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true"`
	Secret  string `yaml:"secret"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Input:  InputConfig{Path: "deals.csv"},
		Output: OutputConfig{FeaturedCutoff: 20},
		Cache: CacheConfig{
			Backend: "file",
			Dir:     "./cache",
			DSN:     "./scorecard.db",
		},
		Enrich: EnrichConfig{
			Enabled:       false,
			Workers:       4,
			RatePerSecond: 2,
			Timeout:       "20s",
			UserAgent:     "scorecard/1.0",
		},
		Server:   ServerConfig{Port: 8080},
		Schedule: ScheduleConfig{Interval: "6h"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads .env, then configuration from a YAML file, applies env var
// overrides and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCORECARD_INPUT"); v != "" {
		cfg.Input.Path = v
	}
	if v := os.Getenv("SCORECARD_OUTPUT"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("SCORECARD_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SCORECARD_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("SCORECARD_CACHE_DSN"); v != "" {
		cfg.Cache.DSN = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Cache.Backend == "postgres" {
		cfg.Cache.DSN = v
	}
	if v := os.Getenv("SCORECARD_ENRICH"); v != "" {
		cfg.Enrich.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("SCORECARD_ENRICH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Enrich.Workers = n
		}
	}
	if v := os.Getenv("SCORECARD_SEARCH_URL"); v != "" {
		cfg.Enrich.SearchURL = v
	}
	if v := os.Getenv("SCORECARD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("SCORECARD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Webhook.URL = v
		cfg.Alerts.Webhook.Enabled = true
	}
	if v := os.Getenv("SCORECARD_WEBHOOK_SECRET"); v != "" {
		cfg.Alerts.Webhook.Secret = v
	}
	if v := os.Getenv("SCORECARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	State         StateConfig         `yaml:"state"`
	History       HistoryConfig       `yaml:"history"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// CatalogConfig locates the product catalog file. The catalog is re-read at
// the start of every cycle so edits take effect on the next tick.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// StateConfig defines the state store backend and location.
type StateConfig struct {
	Backend     string        `yaml:"backend"` // json, sqlite
	Path        string        `yaml:"path"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// HistoryConfig defines the price history database settings.
type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"` // 0 = keep forever
}

// MonitorConfig defines the check cycle behavior.
type MonitorConfig struct {
	Interval      time.Duration   `yaml:"interval"`
	PruneInterval time.Duration   `yaml:"prune_interval"`
	FetchTimeout  time.Duration   `yaml:"fetch_timeout"`
	UserAgent     string          `yaml:"user_agent"`
	StaggerOffset time.Duration   `yaml:"stagger_offset"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines the outbound fetch rate limit.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Email   EmailConfig   `yaml:"email"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// EmailConfig defines SMTP delivery settings. Credentials are normally
// supplied through ${SMTP_USERNAME}/${SMTP_PASSWORD} expansion.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyCatalogDefaults(&cfg.Catalog)
	applyStateDefaults(&cfg.State)
	applyHistoryDefaults(&cfg.History)
	applyMonitorDefaults(&cfg.Monitor)
	applyEmailDefaults(&cfg.Notifications.Email)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.Path == "" {
		c.Path = "data/products.csv"
	}
}

func applyStateDefaults(s *StateConfig) {
	if s.Backend == "" {
		s.Backend = "json"
	}
	if s.Path == "" {
		switch s.Backend {
		case "sqlite":
			s.Path = "data/state.db"
		default:
			s.Path = "data/state.json"
		}
	}
	if s.LockTimeout == 0 {
		s.LockTimeout = 5 * time.Second
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Path == "" {
		h.Path = "data/history.db"
	}
}

func applyMonitorDefaults(m *MonitorConfig) {
	if m.Interval == 0 {
		m.Interval = 15 * time.Minute
	}
	if m.PruneInterval == 0 {
		m.PruneInterval = 24 * time.Hour
	}
	if m.FetchTimeout == 0 {
		m.FetchTimeout = 30 * time.Second
	}
	if m.UserAgent == "" {
		m.UserAgent = "Mozilla/5.0 (compatible; SaleMonitor/1.0)"
	}
	applyRateLimitDefaults(&m.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 2.0
	}
	if r.Burst == 0 {
		r.Burst = 4
	}
}

func applyEmailDefaults(e *EmailConfig) {
	if e.Port == 0 {
		e.Port = 587
	}
	if e.To == "" {
		e.To = e.Username
	}
	if e.From == "" {
		e.From = e.Username
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.State.Backend {
	case "json", "sqlite":
	default:
		errs = append(errs, fmt.Errorf(
			"state.backend must be one of: json, sqlite (got %q)",
			cfg.State.Backend,
		))
	}

	if cfg.History.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("history.retention_days must not be negative"))
	}

	if cfg.Monitor.Interval < time.Minute {
		errs = append(errs, fmt.Errorf(
			"monitor.interval must be at least 1m (got %s)", cfg.Monitor.Interval,
		))
	}

	if cfg.Notifications.Email.Enabled {
		if cfg.Notifications.Email.Host == "" {
			errs = append(errs, fmt.Errorf("notifications.email.host is required when email is enabled"))
		}
		if cfg.Notifications.Email.Username == "" {
			errs = append(errs, fmt.Errorf("notifications.email.username is required when email is enabled"))
		}
		if cfg.Notifications.Email.Password == "" {
			errs = append(errs, fmt.Errorf("notifications.email.password is required when email is enabled"))
		}
	}

	if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("notifications.webhook.url is required when webhook is enabled"))
	}

	return errors.Join(errs...)
}

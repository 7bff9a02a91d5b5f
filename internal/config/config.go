// Package config handles loading and validating the application
// configuration from YAML files with environment variable substitution.
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
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	Worker   WorkerConfig   `yaml:"worker"`
	Quota    QuotaConfig    `yaml:"quota"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string, including the pgxpool
// pool_max_conns setting.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// ProviderConfig defines the enrichment provider API settings.
type ProviderConfig struct {
	BaseURL     string          `yaml:"base_url"`
	APIKey      string          `yaml:"api_key"`
	Timeout     time.Duration   `yaml:"timeout"`
	MaxListings int             `yaml:"max_listings"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines provider API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// WorkerConfig defines refresh worker behavior.
type WorkerConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	Concurrency  int           `yaml:"concurrency"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BackoffBase  time.Duration `yaml:"backoff_base"`
	BackoffCap   time.Duration `yaml:"backoff_cap"`
	ReclaimAfter time.Duration `yaml:"reclaim_after"`
}

// QuotaConfig defines per-user manual refresh limits.
type QuotaConfig struct {
	DailyManualLimit int `yaml:"daily_manual_limit"`
}

// ScheduleConfig defines cron intervals for background jobs.
type ScheduleConfig struct {
	CycleInterval   time.Duration `yaml:"cycle_interval"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	ReclaimInterval time.Duration `yaml:"reclaim_interval"`
	SweepBudget     int           `yaml:"sweep_budget"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment
// variable substitution and validation.
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
	applyDatabaseDefaults(&cfg.Database)
	applyProviderDefaults(&cfg.Provider)
	applyWorkerDefaults(&cfg.Worker)
	applyQuotaDefaults(&cfg.Quota)
	applyScheduleDefaults(&cfg.Schedule)
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

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.Timeout == 0 {
		p.Timeout = 30 * time.Second
	}
	if p.MaxListings == 0 {
		p.MaxListings = 50
	}
	applyRateLimitDefaults(&p.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 2.0
	}
	if r.Burst == 0 {
		r.Burst = 5
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 2000
	}
}

func applyWorkerDefaults(w *WorkerConfig) {
	if w.BatchSize == 0 {
		w.BatchSize = 10
	}
	if w.Concurrency == 0 {
		w.Concurrency = 3
	}
	if w.MaxAttempts == 0 {
		w.MaxAttempts = 3
	}
	if w.BackoffBase == 0 {
		w.BackoffBase = 500 * time.Millisecond
	}
	if w.BackoffCap == 0 {
		w.BackoffCap = 8 * time.Second
	}
	if w.ReclaimAfter == 0 {
		w.ReclaimAfter = 15 * time.Minute
	}
}

func applyQuotaDefaults(q *QuotaConfig) {
	if q.DailyManualLimit == 0 {
		q.DailyManualLimit = 10
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.CycleInterval == 0 {
		s.CycleInterval = 1 * time.Minute
	}
	if s.SweepInterval == 0 {
		s.SweepInterval = 15 * time.Minute
	}
	if s.ReclaimInterval == 0 {
		s.ReclaimInterval = 5 * time.Minute
	}
	if s.SweepBudget == 0 {
		s.SweepBudget = 200
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

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Provider.BaseURL == "" {
		errs = append(errs, fmt.Errorf("provider.base_url is required"))
	}
	if cfg.Provider.APIKey == "" {
		errs = append(errs, fmt.Errorf("provider.api_key is required"))
	}

	if cfg.Worker.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("worker.max_attempts must be at least 1"))
	}
	if cfg.Worker.Concurrency > cfg.Worker.BatchSize {
		errs = append(errs, fmt.Errorf(
			"worker.concurrency (%d) must not exceed worker.batch_size (%d)",
			cfg.Worker.Concurrency, cfg.Worker.BatchSize,
		))
	}

	return errors.Join(errs...)
}

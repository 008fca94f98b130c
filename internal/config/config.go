// Package config loads service configuration from a YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // embedded zone database

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Database holds PostgreSQL connection settings.
type Database struct {
	Host        string        `yaml:"host" env:"HOST"`
	Port        string        `yaml:"port" env:"PORT"`
	User        string        `yaml:"user" env:"USER"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	Name        string        `yaml:"name" env:"NAME"`
	SSLMode     string        `yaml:"sslmode" env:"SSLMODE"`
	MaxConns    int32         `yaml:"max_conns" env:"MAX_CONNS"`
	MinConns    int32         `yaml:"min_conns" env:"MIN_CONNS"`
	MaxConnLife time.Duration `yaml:"max_conn_lifetime" env:"MAX_CONN_LIFETIME"`
	MaxConnIdle time.Duration `yaml:"max_conn_idle_time" env:"MAX_CONN_IDLE_TIME"`
	AutoMigrate bool          `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// DSN builds a libpq-compatible connection string.
func (c Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Auth configures bearer token verification.
type Auth struct {
	Secret string `yaml:"secret" env:"SECRET"`
	Issuer string `yaml:"issuer" env:"ISSUER"`
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	Burst     int `yaml:"burst" env:"BURST"`
	PerSecond int `yaml:"per_second" env:"PER_SECOND"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Jobs configures background schedules.
type Jobs struct {
	// VacancyCron is a five-field cron spec for the vacancy report.
	// Empty disables the job.
	VacancyCron string `yaml:"vacancy_cron" env:"VACANCY_CRON"`
}

// Calendar configures iCalendar export.
type Calendar struct {
	Timezone      string        `yaml:"timezone" env:"TIMEZONE"`
	EventDuration time.Duration `yaml:"event_duration" env:"EVENT_DURATION"`
	Organizer     string        `yaml:"organizer" env:"ORGANIZER"`
	Domain        string        `yaml:"domain" env:"DOMAIN"`
}

// Config is the top-level application configuration.
type Config struct {
	Port      string    `yaml:"port" env:"PORT"`
	Database  Database  `yaml:"database" envPrefix:"DB_"`
	Auth      Auth      `yaml:"auth" envPrefix:"AUTH_"`
	RateLimit RateLimit `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Log       Log       `yaml:"log" envPrefix:"LOG_"`
	Jobs      Jobs      `yaml:"jobs" envPrefix:"JOBS_"`
	Calendar  Calendar  `yaml:"calendar" envPrefix:"CALENDAR_"`
}

// Default returns the local-development configuration.
func Default() *Config {
	return &Config{
		Port: "8080",
		Database: Database{
			Host:        "localhost",
			Port:        "5432",
			User:        "postgres",
			Password:    "postgres",
			Name:        "escala",
			SSLMode:     "disable",
			MaxConns:    20,
			MinConns:    2,
			MaxConnLife: 30 * time.Minute,
			MaxConnIdle: 5 * time.Minute,
		},
		Auth:      Auth{Issuer: "escala"},
		RateLimit: RateLimit{Burst: 20, PerSecond: 10},
		Log:       Log{Level: "info", Format: "json"},
		Jobs:      Jobs{VacancyCron: "*/15 * * * *"},
		Calendar: Calendar{
			Timezone:      "America/Sao_Paulo",
			EventDuration: 2 * time.Hour,
			Organizer:     "PASCOM",
			Domain:        "escala.local",
		},
	}
}

// Normalize fills zero values left by a partial file with defaults.
func (c *Config) Normalize() {
	d := Default()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.Database.Host == "" {
		c.Database.Host = d.Database.Host
	}
	if c.Database.Port == "" {
		c.Database.Port = d.Database.Port
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = d.Database.SSLMode
	}
	if c.Database.Name == "" {
		c.Database.Name = d.Database.Name
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = d.Database.MaxConns
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		c.Database.MinConns = d.Database.MinConns
	}
	if c.Database.MaxConnLife <= 0 {
		c.Database.MaxConnLife = d.Database.MaxConnLife
	}
	if c.Database.MaxConnIdle <= 0 {
		c.Database.MaxConnIdle = d.Database.MaxConnIdle
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = d.Auth.Issuer
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = d.RateLimit.Burst
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = d.RateLimit.PerSecond
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = d.Log.Level
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format != "text" {
		c.Log.Format = "json"
	}
	if c.Calendar.Timezone == "" {
		c.Calendar.Timezone = d.Calendar.Timezone
	}
	if c.Calendar.EventDuration <= 0 {
		c.Calendar.EventDuration = d.Calendar.EventDuration
	}
	if c.Calendar.Organizer == "" {
		c.Calendar.Organizer = d.Calendar.Organizer
	}
	if c.Calendar.Domain == "" {
		c.Calendar.Domain = d.Calendar.Domain
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return errors.New("auth secret is not configured (auth.secret or AUTH_SECRET)")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar timezone: %w", err)
	}
	return nil
}

// Load reads the YAML file at path (defaults when path is empty or the file
// does not exist), applies environment overrides and normalizes the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("decode config: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

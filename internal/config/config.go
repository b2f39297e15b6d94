// Vitrine - Digital Signage Management Backend
// Copyright 2026 Vitrine Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrine-hq/vitrine

// Package config loads and validates Vitrine configuration using Koanf v2
// with layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete Vitrine configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Signage  SignageConfig  `koanf:"signage"`
	Audit    AuditConfig    `koanf:"audit"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds DuckDB settings for the audit trail.
type DatabaseConfig struct {
	// Path to the DuckDB database file. ":memory:" for ephemeral storage.
	Path string `koanf:"path"`

	// MaxMemory is DuckDB's memory limit, e.g. "1GB".
	MaxMemory string `koanf:"max_memory"`
}

// SignageConfig holds the Badger-backed signage store settings.
type SignageConfig struct {
	// DataDir is the Badger directory for content, playlists, schedules,
	// and devices.
	DataDir string `koanf:"data_dir"`

	// GCInterval is how often the Badger value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// AuditConfig holds the audit write queue settings. The numeric fields are
// clamped (never rejected) by the queue at construction; Validate only
// reports values that are suspicious enough to be worth a hard failure.
type AuditConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Capacity       int           `koanf:"capacity"`
	FlushBatchSize int           `koanf:"flush_batch_size"`
	FlushInterval  time.Duration `koanf:"flush_interval"`
	SaveTimeout    time.Duration `koanf:"save_timeout"`

	// RetentionDays is how long persisted audit events are kept. Zero
	// disables retention cleanup.
	RetentionDays int `koanf:"retention_days"`

	// BreakerEnabled wraps the persistence sink in a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs bearer tokens. Required in production.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL is the bearer token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`

	AdminUsername string `koanf:"admin_username"`
	AdminPassword string `koanf:"admin_password"`

	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are the
// lowest-priority layer; the config file and environment override them.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8480,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/vitrine.duckdb",
			MaxMemory: "1GB",
		},
		Signage: SignageConfig{
			DataDir:    "/data/signage",
			GCInterval: 10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:        true,
			Capacity:       1000,
			FlushBatchSize: 50,
			FlushInterval:  5 * time.Second,
			SaveTimeout:    5 * time.Second,
			RetentionDays:  90,
			BreakerEnabled: true,
		},
		Security: SecurityConfig{
			JWTSecret:       "",
			TokenTTL:        24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// DefaultTestConfig returns a ready-to-use configuration for tests: defaults
// plus a fixed JWT secret and admin credentials, rate limiting opened wide so
// request-heavy tests never trip it.
func DefaultTestConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "test-secret-0123456789abcdef0123"
	cfg.Security.AdminUsername = "admin"
	cfg.Security.AdminPassword = "test-admin-password"
	cfg.Security.RateLimitReqs = 10000
	return cfg
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Server.Environment != "production" {
		return nil
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters in production")
	}
	if c.Security.AdminUsername == "" || c.Security.AdminPassword == "" {
		return fmt.Errorf("security.admin_username and security.admin_password are required in production")
	}
	if len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("security.admin_password must be at least 8 characters")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("logging.level %q is not a recognized level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

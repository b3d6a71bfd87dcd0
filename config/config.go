/*
Package config loads server and CLI settings.

PRECEDENCE (lowest to highest):
  1. DefaultConfig()
  2. TOML file (path given to Load, skipped when empty or missing)
  3. .env file in the working directory (values do not override real env)
  4. Environment variables BUDGET_*
  5. Command-line flags, applied by cmd/server

ENVIRONMENT:
  BUDGET_PORT              HTTP port
  BUDGET_DB                SQLite path, ":memory:" for in-memory
  BUDGET_LOG_MODE          "development" or "production"
  BUDGET_LOG_LEVEL         debug, info, warn, error
  BUDGET_BASE_SHIFT_HOURS  Overtime threshold in hours
  BUDGET_CORS_ORIGINS      Comma separated allowed origins
  BUDGET_AUDIT_INTERVAL    Budget audit period ("30m", "0" disables)

EXAMPLE FILE:
  [server]
  port = 8080

  [database]
  path = "./data/budget.db"

  [log]
  mode = "production"
  level = "info"

  [production]
  base_shift_hours = "12"

  [audit]
  interval = "1h"
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all settings.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Log        LogConfig        `toml:"log"`
	Production ProductionConfig `toml:"production"`
	CORS       CORSConfig       `toml:"cors"`
	Audit      AuditConfig      `toml:"audit"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

// ProductionConfig holds shoot-day settings.
type ProductionConfig struct {
	BaseShiftHours decimal.Decimal `toml:"base_shift_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// AuditConfig controls the periodic budget audit. Zero disables it.
type AuditConfig struct {
	Interval time.Duration `toml:"interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Server:     ServerConfig{Port: 8080},
		Database:   DatabaseConfig{Path: "budget.db"},
		Log:        LogConfig{Mode: "development", Level: "info"},
		Production: ProductionConfig{BaseShiftHours: decimal.NewFromInt(12)},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Audit: AuditConfig{Interval: time.Hour},
	}
}

// Load builds the configuration from defaults, the TOML file at path, a
// .env file and the environment.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config: %w", err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("BUDGET_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: BUDGET_PORT=%q", ErrInvalidConfig, v)
		}
		cfg.Server.Port = port
	}
	if v := getenv("BUDGET_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := getenv("BUDGET_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := getenv("BUDGET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("BUDGET_BASE_SHIFT_HOURS"); v != "" {
		hours, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("%w: BUDGET_BASE_SHIFT_HOURS=%q", ErrInvalidConfig, v)
		}
		cfg.Production.BaseShiftHours = hours
	}
	if v := getenv("BUDGET_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	if v := getenv("BUDGET_AUDIT_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: BUDGET_AUDIT_INTERVAL=%q", ErrInvalidConfig, v)
		}
		cfg.Audit.Interval = interval
	}
	return nil
}

// Validate checks ranges that would otherwise fail at startup.
func (c Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	case !c.Production.BaseShiftHours.IsPositive():
		return fmt.Errorf("%w: base shift hours must be positive", ErrInvalidConfig)
	case c.Audit.Interval < 0:
		return fmt.Errorf("%w: negative audit interval", ErrInvalidConfig)
	}
	switch c.Log.Mode {
	case "development", "production":
	default:
		return fmt.Errorf("%w: unknown log mode %q", ErrInvalidConfig, c.Log.Mode)
	}
	return nil
}

// Package config loads application configuration from an optional YAML
// file, with environment variables (optionally supplied through a .env
// file) taking precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file. ":memory:" keeps
	// everything in process, which is handy for demos.
	DatabasePath string `yaml:"database_path"`

	// Timezone is the single project-wide IANA zone, e.g. "Europe/Berlin".
	Timezone string `yaml:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// PageLimit is the default page size for calendar queries.
	PageLimit int `yaml:"page_limit"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		Listen:       ":8080",
		DatabasePath: "calcore.db",
		Timezone:     "UTC",
		LogLevel:     "info",
		PageLimit:    50,
	}
}

// Load reads the YAML file at path (missing file is not an error; defaults
// apply), loads a .env file when one exists, and applies CALCORE_*
// environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to env handling
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env is optional; real environment variables win over its contents.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if cfg.PageLimit < 1 {
		return Config{}, fmt.Errorf("config: page_limit must be >= 1, got %d", cfg.PageLimit)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CALCORE_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("CALCORE_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("CALCORE_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("CALCORE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CALCORE_PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PageLimit = n
		}
	}
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

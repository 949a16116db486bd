package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Archive struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"archive"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	API struct {
		CoinGeckoBaseURL string `yaml:"coingecko_base_url"`
	} `yaml:"api"`
	Server struct {
		Port            int    `yaml:"port"`
		CORSAllowOrigin string `yaml:"cors_allow_origin"`
	} `yaml:"server"`
	Refresh struct {
		Cron string `yaml:"cron"`
	} `yaml:"refresh"`
	Timezone string `yaml:"timezone"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides (a .env file is honored if present).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ARCHIVE_PATH"); v != "" {
		cfg.Archive.CSVPath = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		cfg.API.CoinGeckoBaseURL = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("CORS_ALLOW_ORIGIN"); v != "" {
		cfg.Server.CORSAllowOrigin = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}

	// Defaults
	if cfg.Archive.CSVPath == "" {
		cfg.Archive.CSVPath = "data/btc_history.csv"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/btc_tracker.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSAllowOrigin == "" {
		cfg.Server.CORSAllowOrigin = "*"
	}
	if cfg.Refresh.Cron == "" {
		cfg.Refresh.Cron = "0 5 * * * *" // five past every hour
	}

	return cfg, nil
}

// Validate checks that all required fields are usable.
func (c *Config) Validate() error {
	if c.Archive.CSVPath == "" {
		return fmt.Errorf("archive.csv_path is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	return nil
}

// Location resolves the configured timezone, defaulting to the process
// local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

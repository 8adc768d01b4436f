// Package config loads application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Discord    DiscordConfig    `yaml:"discord"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Retention  RetentionConfig  `yaml:"retention"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	// SuperAdminDiscordID identifies the account whose role and blocked
	// status can never be changed through the admin API.
	SuperAdminDiscordID string `yaml:"super_admin_discord_id"`
}

// DiscordConfig holds Discord OAuth2 settings. OAuth login is disabled
// when ClientID is empty; local accounts still work.
type DiscordConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// EncryptionConfig holds the key protecting webhook URLs at rest.
type EncryptionConfig struct {
	Key string `yaml:"key"`
}

// SchedulerConfig holds the scheduled-send runner settings.
type SchedulerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

// RetentionConfig controls how long send history and activity records
// are kept. Zero disables pruning for that table.
type RetentionConfig struct {
	HistoryDays  int `yaml:"history_days"`
	ActivityDays int `yaml:"activity_days"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "/data/hookboard.db",
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			IntervalSeconds: 30,
		},
		Retention: RetentionConfig{
			HistoryDays:  365,
			ActivityDays: 90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("HB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("HB_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("HB_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("HB_SUPER_ADMIN_DISCORD_ID"); v != "" {
		c.Auth.SuperAdminDiscordID = v
	}
	if v := os.Getenv("HB_DISCORD_CLIENT_ID"); v != "" {
		c.Discord.ClientID = v
	}
	if v := os.Getenv("HB_DISCORD_CLIENT_SECRET"); v != "" {
		c.Discord.ClientSecret = v
	}
	if v := os.Getenv("HB_DISCORD_REDIRECT_URL"); v != "" {
		c.Discord.RedirectURL = v
	}
	if v := os.Getenv("HB_ENCRYPTION_KEY"); v != "" {
		c.Encryption.Key = v
	}
	if v := os.Getenv("HB_SCHEDULER_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Scheduler.IntervalSeconds = secs
		}
	}
	if v := os.Getenv("HB_HISTORY_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Retention.HistoryDays = days
		}
	}
	if v := os.Getenv("HB_ACTIVITY_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Retention.ActivityDays = days
		}
	}
	if v := os.Getenv("HB_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HB_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("HB_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if bp := c.Server.BasePath; bp != "" {
		if !strings.HasPrefix(bp, "/") || strings.HasSuffix(bp, "/") {
			return fmt.Errorf("base path must start with / and not end with /: %q", bp)
		}
	}
	if c.Discord.ClientID != "" && c.Discord.ClientSecret == "" {
		return fmt.Errorf("discord client_secret is required when client_id is set")
	}
	if c.Retention.HistoryDays < 0 || c.Retention.ActivityDays < 0 {
		return fmt.Errorf("retention days must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

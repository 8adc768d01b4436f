package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.IntervalSeconds != 30 {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Retention.HistoryDays != 365 || cfg.Retention.ActivityDays != 90 {
		t.Errorf("Retention = %+v", cfg.Retention)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  base_path: /hooks
database:
  path: /tmp/test.db
discord:
  client_id: abc
  client_secret: def
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.BasePath != "/hooks" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Discord.ClientID != "abc" {
		t.Errorf("Discord.ClientID = %q", cfg.Discord.ClientID)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HB_PORT", "7070")
	t.Setenv("HB_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"base path no slash", func(c *Config) { c.Server.BasePath = "hooks" }, true},
		{"base path trailing slash", func(c *Config) { c.Server.BasePath = "/hooks/" }, true},
		{"base path ok", func(c *Config) { c.Server.BasePath = "/hooks" }, false},
		{"client id without secret", func(c *Config) { c.Discord.ClientID = "abc" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"negative retention", func(c *Config) { c.Retention.HistoryDays = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

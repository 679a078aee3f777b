package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:     "localhost",
				Database: "taskwarden",
				User:     "taskwarden",
			},
		},
	}
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
  environment: production

database:
  postgres:
    host: db.internal
    port: 5432
    database: taskwarden
    user: warden
    password: secret
    ssl_mode: require
  redis:
    host: cache.internal
    port: 6379
    db: 2

sweeper:
  enabled: true
  interval: 10m

reminder:
  enabled: true
  interval: 30s

notifier:
  enabled: true
  webhook_url: https://chat.example.com/hooks/abc
  channel: obligations

metrics:
  enabled: true
  path: /metrics

logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Postgres.Host != "db.internal" {
		t.Errorf("Expected postgres host db.internal, got %q", cfg.Database.Postgres.Host)
	}
	if cfg.Database.Redis.DB != 2 {
		t.Errorf("Expected redis db 2, got %d", cfg.Database.Redis.DB)
	}
	if !cfg.Sweeper.Enabled {
		t.Error("Expected sweeper to be enabled")
	}
	if cfg.Notifier.WebhookURL != "https://chat.example.com/hooks/abc" {
		t.Errorf("Unexpected webhook URL: %q", cfg.Notifier.WebhookURL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %q", cfg.Logging.Level)
	}

	sweep, err := cfg.Sweeper.GetInterval()
	if err != nil {
		t.Fatalf("Sweeper.GetInterval() failed: %v", err)
	}
	if sweep != 10*time.Minute {
		t.Errorf("Expected sweep interval 10m, got %v", sweep)
	}

	remind, err := cfg.Reminder.GetInterval()
	if err != nil {
		t.Fatalf("Reminder.GetInterval() failed: %v", err)
	}
	if remind != 30*time.Second {
		t.Errorf("Expected reminder interval 30s, got %v", remind)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	data, err := yaml.Marshal(map[string]any{
		"database": map[string]any{
			"postgres": map[string]any{"host": "localhost"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to marshal fixture: %v", err)
	}
	path := writeConfigFile(t, string(data))

	if _, err := Load(path); err == nil {
		t.Error("Expected error for config missing postgres database and user")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate_RedisRequiredForReminders(t *testing.T) {
	cfg := validConfig()
	cfg.Reminder.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when reminders are enabled without a redis host")
	}

	cfg.Database.Redis.Host = "localhost"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidate_BadIntervals(t *testing.T) {
	cfg := validConfig()
	cfg.Sweeper.Interval = "five minutes"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unparseable sweeper interval")
	}

	cfg = validConfig()
	cfg.Reminder.Interval = "10x"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unparseable reminder interval")
	}
}

func TestGetInterval_Defaults(t *testing.T) {
	var sw SweeperConfig
	d, err := sw.GetInterval()
	if err != nil {
		t.Fatalf("GetInterval() failed: %v", err)
	}
	if d != DefaultSweepInterval {
		t.Errorf("Expected default sweep interval %v, got %v", DefaultSweepInterval, d)
	}

	var rm ReminderConfig
	d, err = rm.GetInterval()
	if err != nil {
		t.Fatalf("GetInterval() failed: %v", err)
	}
	if d != DefaultReminderInterval {
		t.Errorf("Expected default reminder interval %v, got %v", DefaultReminderInterval, d)
	}
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache.internal", Port: 6380}
	if got := c.RedisAddr(); got != "cache.internal:6380" {
		t.Errorf("Expected cache.internal:6380, got %q", got)
	}
}

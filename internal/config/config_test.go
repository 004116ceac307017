package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("defaults should load without a config file: %v", err)
	}
	if cfg.Scheduler.Interval != time.Minute {
		t.Fatalf("default interval = %v, want 1m", cfg.Scheduler.Interval)
	}
	if cfg.App.Timezone != "UTC" || cfg.Location() != time.UTC {
		t.Fatalf("default timezone should be UTC, got %q", cfg.App.Timezone)
	}
	if cfg.Alerting.MinOverallScore != 60 {
		t.Fatalf("default min score = %d, want 60", cfg.Alerting.MinOverallScore)
	}
	if len(cfg.Alerting.Channels) != 1 || cfg.Alerting.Channels[0] != "telegram" {
		t.Fatalf("default channels = %v", cfg.Alerting.Channels)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
app:
  timezone: Asia/Seoul
scheduler:
  interval: 30s
redis:
  enabled: true
  ttl: 2m
alerting:
  channels: telegram,log
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CIOWATCH_DATABASE_DSN", "postgres://localhost/cio")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scheduler.Interval != 30*time.Second {
		t.Fatalf("interval = %v, want 30s", cfg.Scheduler.Interval)
	}
	if cfg.Location().String() != "Asia/Seoul" {
		t.Fatalf("location = %s", cfg.Location())
	}
	if !cfg.Redis.Enabled || cfg.Redis.TTL != 2*time.Minute {
		t.Fatalf("redis config not applied: %+v", cfg.Redis)
	}
	if cfg.Database.DSN != "postgres://localhost/cio" {
		t.Fatalf("env override missing, dsn = %q", cfg.Database.DSN)
	}
	if len(cfg.Alerting.Channels) != 2 {
		t.Fatalf("channels = %v, want 2 entries", cfg.Alerting.Channels)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			App:       AppConfig{Timezone: "UTC"},
			Scheduler: SchedulerConfig{Interval: time.Minute},
			Export:    ExportConfig{Width: 10, Height: 10},
		}
	}

	ok := base()
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *Config){
		"timezone":      func(c *Config) { c.App.Timezone = "Mars/Olympus" },
		"interval":      func(c *Config) { c.Scheduler.Interval = 0 },
		"score":         func(c *Config) { c.Alerting.MinOverallScore = 101 },
		"telegram":      func(c *Config) { c.Alerting.Telegram.Enabled = true },
		"redis ttl":     func(c *Config) { c.Redis = RedisConfig{Enabled: true, Addr: "x"} },
		"export bounds": func(c *Config) { c.Export.Width = 0 },
	}
	for name, mutate := range cases {
		c := base()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

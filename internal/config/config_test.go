package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Run.LookbackDays != 42 {
		t.Errorf("lookback_days = %d, want 42", cfg.Run.LookbackDays)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("max_retries = %d, want 3", cfg.Fetch.MaxRetries)
	}
	if got := cfg.RetryDelay(); got != 2*time.Second {
		t.Errorf("RetryDelay() = %v, want 2s", got)
	}
	if got := cfg.BatchPause(); got != 200*time.Millisecond {
		t.Errorf("BatchPause() = %v, want 200ms", got)
	}
	if cfg.Archive.Backend != "none" {
		t.Errorf("archive.backend = %q, want none", cfg.Archive.Backend)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
run:
  lookback_days: 14
  preview_limit: 5
fetch:
  user_agent: custom-agent
  timeout_seconds: 20
  max_retries: 5
headless:
  enabled: false
output:
  dir: /tmp/out
airtable:
  enabled: true
  api_key: key
  base_id: appXYZ
  table: Projects
archive:
  backend: local
logging:
  development: false
  level: warn
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", path, err)
	}
	if cfg.Run.LookbackDays != 14 {
		t.Errorf("lookback_days = %d, want 14", cfg.Run.LookbackDays)
	}
	if cfg.Fetch.UserAgent != "custom-agent" {
		t.Errorf("user_agent = %q", cfg.Fetch.UserAgent)
	}
	if cfg.FetchTimeout() != 20*time.Second {
		t.Errorf("FetchTimeout() = %v, want 20s", cfg.FetchTimeout())
	}
	if cfg.Headless.Enabled {
		t.Error("headless should be disabled")
	}
	if cfg.Airtable.Table != "Projects" {
		t.Errorf("airtable.table = %q", cfg.Airtable.Table)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BIDSWEEP_RUN_LOOKBACK_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Run.LookbackDays != 7 {
		t.Errorf("lookback_days = %d, want 7 from env", cfg.Run.LookbackDays)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero lookback", func(c *Config) { c.Run.LookbackDays = 0 }, "lookback_days"},
		{"airtable missing key", func(c *Config) { c.Airtable.Enabled = true }, "airtable"},
		{"classifier missing key", func(c *Config) { c.Classifier.Enabled = true }, "classifier"},
		{"bad archive backend", func(c *Config) { c.Archive.Backend = "s3" }, "archive.backend"},
		{"gcs without bucket", func(c *Config) { c.Archive.Backend = "gcs" }, "archive.bucket"},
		{"db without dsn", func(c *Config) { c.DB.Enabled = true }, "db.dsn"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(&cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

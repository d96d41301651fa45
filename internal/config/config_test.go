package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// --- Default ---

func TestDefault_MatchesDocumentedValues(t *testing.T) {
	cfg := Default()

	if cfg.HTTPAddr != ":8787" {
		t.Errorf("HTTPAddr = %s, want :8787", cfg.HTTPAddr)
	}
	if cfg.LongPassageWords != 30 || cfg.ShortenKeepWords != 20 {
		t.Errorf("thresholds = %d/%d, want 30/20", cfg.LongPassageWords, cfg.ShortenKeepWords)
	}
	if cfg.LockWait.Std() != 5*time.Second {
		t.Errorf("LockWait = %v, want 5s", cfg.LockWait.Std())
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if !strings.HasSuffix(cfg.DataDir, ".docsmith") {
		t.Errorf("DataDir = %s, want ~/.docsmith", cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

// --- Load ---

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/srv/docsmith"
http_addr = "127.0.0.1:9000"
lock_wait = "250ms"
artifact_retention = "2h"
long_passage_words = 40
public_base_url = "https://docs.example.com"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/docsmith" || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("paths = %s %s", cfg.DataDir, cfg.HTTPAddr)
	}
	if cfg.LockWait.Std() != 250*time.Millisecond {
		t.Errorf("LockWait = %v", cfg.LockWait.Std())
	}
	if cfg.ArtifactRetention.Std() != 2*time.Hour {
		t.Errorf("ArtifactRetention = %v", cfg.ArtifactRetention.Std())
	}
	if cfg.LongPassageWords != 40 {
		t.Errorf("LongPassageWords = %d", cfg.LongPassageWords)
	}
	// Untouched keys keep defaults.
	if cfg.ShortenKeepWords != 20 {
		t.Errorf("ShortenKeepWords = %d, want default 20", cfg.ShortenKeepWords)
	}
	if cfg.PublicBaseURL != "https://docs.example.com" {
		t.Errorf("PublicBaseURL = %s", cfg.PublicBaseURL)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("lock_wait = \"soon\""), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

// --- ApplyEnv ---

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvDataDir:  "/tmp/d",
		EnvLogLevel: "debug",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.DataDir != "/tmp/d" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s", cfg.LogLevel)
	}
	if cfg.HTTPAddr != ":8787" {
		t.Errorf("unset env var changed HTTPAddr to %s", cfg.HTTPAddr)
	}
}

// --- Validate ---

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mut  func(c *Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"zero long passage", func(c *Config) { c.LongPassageWords = 0 }},
		{"keep exceeds threshold", func(c *Config) { c.ShortenKeepWords = 31 }},
		{"zero lock wait", func(c *Config) { c.LockWait = 0 }},
		{"zero upload cap", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"negative retention", func(c *Config) { c.ArtifactRetention = -1 }},
		{"zero sweep", func(c *Config) { c.SweepInterval = 0 }},
		{"zero fetch timeout", func(c *Config) { c.FetchTimeout = 0 }},
		{"zero fetch rate", func(c *Config) { c.FetchRatePerMinute = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

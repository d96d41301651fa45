// Package config loads docsmith settings.
//
// Precedence, lowest first: built-in defaults, the TOML file, DOCSMITH_*
// environment variables, then command-line flags (applied by cmd).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataDir  = "DOCSMITH_DATA_DIR"
	EnvHTTPAddr = "DOCSMITH_HTTP_ADDR"
	EnvLogLevel = "DOCSMITH_LOG_LEVEL"
)

// Duration is a time.Duration that reads from TOML strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds every tunable of the service.
type Config struct {
	DataDir  string `toml:"data_dir"`
	HTTPAddr string `toml:"http_addr"`
	LogLevel string `toml:"log_level"`

	LongPassageWords int      `toml:"long_passage_words"`
	ShortenKeepWords int      `toml:"shorten_keep_words"`
	LockWait         Duration `toml:"lock_wait"`
	MaxUploadBytes   int64    `toml:"max_upload_bytes"`

	ArtifactRetention Duration `toml:"artifact_retention"`
	SweepInterval     Duration `toml:"sweep_interval"`

	FetchTimeout       Duration `toml:"fetch_timeout"`
	FetchRatePerMinute int      `toml:"fetch_rate_per_minute"`

	// PublicBaseURL prefixes download links, e.g. "https://docs.example.com".
	// Empty yields relative links.
	PublicBaseURL string `toml:"public_base_url"`
}

// Dir returns the default configuration and data directory, ~/.docsmith.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".docsmith")
}

// DefaultPath returns the default configuration file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:            Dir(),
		HTTPAddr:           ":8787",
		LogLevel:           "info",
		LongPassageWords:   30,
		ShortenKeepWords:   20,
		LockWait:           Duration(5 * time.Second),
		MaxUploadBytes:     20 << 20,
		ArtifactRetention:  Duration(24 * time.Hour),
		SweepInterval:      Duration(10 * time.Minute),
		FetchTimeout:       Duration(30 * time.Second),
		FetchRatePerMinute: 30,
	}
}

// Load returns the defaults overlaid with the TOML file at path. An empty
// path means DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays DOCSMITH_* variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DataDir) == "":
		return errors.New("data_dir must be set")
	case c.LongPassageWords <= 0:
		return fmt.Errorf("long_passage_words must be positive, got %d", c.LongPassageWords)
	case c.ShortenKeepWords <= 0 || c.ShortenKeepWords > c.LongPassageWords:
		return fmt.Errorf("shorten_keep_words must be in [1,%d], got %d", c.LongPassageWords, c.ShortenKeepWords)
	case c.LockWait <= 0:
		return errors.New("lock_wait must be positive")
	case c.MaxUploadBytes <= 0:
		return errors.New("max_upload_bytes must be positive")
	case c.ArtifactRetention <= 0:
		return errors.New("artifact_retention must be positive")
	case c.SweepInterval <= 0:
		return errors.New("sweep_interval must be positive")
	case c.FetchTimeout <= 0:
		return errors.New("fetch_timeout must be positive")
	case c.FetchRatePerMinute <= 0:
		return errors.New("fetch_rate_per_minute must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q (want debug, info, warn or error)", s)
}

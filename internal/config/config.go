package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the signalboard client.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Search  SearchConfig  `yaml:"search"`
	Refresh RefreshConfig `yaml:"refresh"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig holds the endpoint and HTTP behaviour for the dashboard API.
type BackendConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// SearchConfig controls the search merge engine.
type SearchConfig struct {
	DebounceMS  int `yaml:"debounce_ms"`
	RemoteLimit int `yaml:"remote_limit"`
}

// RefreshConfig controls the auto-refresh scheduler.
type RefreshConfig struct {
	IntervalSec    int    `yaml:"interval_sec"`
	InitialSection string `yaml:"initial_section"`
}

// StorageConfig holds paths for local caches and the session log.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// LoggingConfig configures the application logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Timeout returns the backend HTTP timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

// Debounce returns the search debounce window as a duration.
func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// Interval returns the refresh period as a duration.
func (r RefreshConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSec) * time.Second
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:         "http://localhost:8000",
			TimeoutSec:      30,
			RateLimitPerMin: 120,
		},
		Search: SearchConfig{
			DebounceMS:  100,
			RemoteLimit: 10,
		},
		Refresh: RefreshConfig{
			IntervalSec:    32,
			InitialSection: "signals",
		},
		Storage: StorageConfig{
			DataDir:    "data",
			SQLitePath: "data/signalboard.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML configuration file at the given path on top of the
// defaults, then applies environment variable overrides. A missing file is
// not an error: defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIGNALBOARD_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("SIGNALBOARD_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutSec = n
		}
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// validate rejects values that would break the runtime guards downstream.
func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Backend.TimeoutSec <= 0 {
		return fmt.Errorf("backend.timeout_sec must be positive")
	}
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must not be negative")
	}
	if c.Search.RemoteLimit <= 0 {
		return fmt.Errorf("search.remote_limit must be positive")
	}
	if c.Refresh.IntervalSec <= 0 {
		return fmt.Errorf("refresh.interval_sec must be positive")
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q, want default", cfg.Backend.BaseURL)
	}
	if cfg.Search.Debounce() != 100*time.Millisecond {
		t.Errorf("Debounce = %v, want 100ms", cfg.Search.Debounce())
	}
	if cfg.Refresh.Interval() != 32*time.Second {
		t.Errorf("Interval = %v, want 32s", cfg.Refresh.Interval())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalboard.yaml")
	content := `
backend:
  base_url: "http://api.example.com"
  timeout_sec: 10
search:
  debounce_ms: 250
refresh:
  interval_sec: 60
  initial_section: "news"
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://api.example.com" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Backend.Timeout())
	}
	if cfg.Search.DebounceMS != 250 {
		t.Errorf("DebounceMS = %d, want 250", cfg.Search.DebounceMS)
	}
	if cfg.Refresh.InitialSection != "news" {
		t.Errorf("InitialSection = %q, want news", cfg.Refresh.InitialSection)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	// Unset sections keep defaults.
	if cfg.Search.RemoteLimit != 10 {
		t.Errorf("RemoteLimit = %d, want default 10", cfg.Search.RemoteLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SIGNALBOARD_BASE_URL", "http://env.example.com")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://env.example.com" {
		t.Errorf("BaseURL = %q, want env override", cfg.Backend.BaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := `
refresh:
  interval_sec: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted interval_sec = 0")
	}
}

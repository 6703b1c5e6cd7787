package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Engine defaults
	if cfg.Engine.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("expected engine base_url http://127.0.0.1:8000, got %s", cfg.Engine.BaseURL)
	}
	if cfg.Engine.Timeout != 5*time.Second {
		t.Errorf("expected engine timeout 5s, got %v", cfg.Engine.Timeout)
	}

	// Poller defaults
	if cfg.Poller.Interval != 3*time.Second {
		t.Errorf("expected poll interval 3s, got %v", cfg.Poller.Interval)
	}
	if !cfg.Poller.StaleGuard {
		t.Error("expected stale guard enabled by default")
	}

	// Notify defaults
	if cfg.Notify.BufferSize != 256 {
		t.Errorf("expected notify buffer_size 256, got %d", cfg.Notify.BufferSize)
	}

	// Journal defaults
	if cfg.Journal.Enabled {
		t.Error("expected journal disabled by default")
	}
	if cfg.Journal.DSN != "queuedash.db" {
		t.Errorf("expected journal dsn queuedash.db, got %s", cfg.Journal.DSN)
	}

	// HTTP defaults
	if !cfg.HTTP.Enabled {
		t.Error("expected HTTP enabled by default")
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.Addr() != "127.0.0.1:8080" {
		t.Errorf("expected addr 127.0.0.1:8080, got %s", cfg.HTTP.Addr())
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[engine]
base_url = "http://engine:9000"
timeout = "2s"

[poller]
interval = "500ms"
stale_guard = false

[journal]
enabled = true
dsn = "history.db"

[http]
enabled = false
port = 9000
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Check overridden values
	if cfg.Engine.BaseURL != "http://engine:9000" {
		t.Errorf("expected base_url http://engine:9000, got %s", cfg.Engine.BaseURL)
	}
	if cfg.Engine.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", cfg.Engine.Timeout)
	}
	if cfg.Poller.Interval != 500*time.Millisecond {
		t.Errorf("expected interval 500ms, got %v", cfg.Poller.Interval)
	}
	if cfg.Poller.StaleGuard {
		t.Error("expected stale guard disabled")
	}
	if !cfg.Journal.Enabled || cfg.Journal.DSN != "history.db" {
		t.Errorf("unexpected journal config: %+v", cfg.Journal)
	}
	if cfg.HTTP.Enabled {
		t.Error("expected HTTP disabled")
	}

	// Check default values still present
	if !cfg.Poller.PollOnStart {
		t.Error("expected poll_on_start default true")
	}
	if cfg.Notify.BufferSize != 256 {
		t.Errorf("expected notify buffer_size default 256, got %d", cfg.Notify.BufferSize)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
engine:
  base_url: http://yaml-engine:8000
  requests_per_second: 5
  burst: 2
poller:
  interval: 10s
logging:
  level: debug
  format: json
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Engine.BaseURL != "http://yaml-engine:8000" {
		t.Errorf("expected yaml base_url, got %s", cfg.Engine.BaseURL)
	}
	if cfg.Engine.RequestsPerSecond != 5 || cfg.Engine.Burst != 2 {
		t.Errorf("unexpected rate settings: %+v", cfg.Engine)
	}
	if cfg.Poller.Interval != 10*time.Second {
		t.Errorf("expected interval 10s, got %v", cfg.Poller.Interval)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected json format, got %s", cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.toml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[engine\nbase_url ="), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfig_NoFile(t *testing.T) {
	t.Setenv(EnvEngineURL, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error for empty config path, got %v", err)
	}

	// Should return defaults
	if cfg.Engine.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("expected default base_url, got %s", cfg.Engine.BaseURL)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[engine]\nbase_url = \"http://file:1\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(EnvEngineURL, "http://env:2")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Engine.BaseURL != "http://env:2" {
		t.Errorf("expected env base_url, got %s", cfg.Engine.BaseURL)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvHTTPAddress: "0.0.0.0",
		EnvHTTPPort:    "9999",
		EnvLogLevel:    "DEBUG",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Addr() != "0.0.0.0:9999" {
		t.Errorf("expected 0.0.0.0:9999, got %s", cfg.HTTP.Addr())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}

	env[EnvHTTPPort] = "not-a-port"
	if err := cfg.ApplyEnv(lookup); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestValidate_Success(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.BaseURL = "ftp://engine"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-http base_url")
	}
}

func TestValidate_InvalidPollInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Poller.Interval = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero poll interval")
	}
}

func TestValidate_InvalidNotifyBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Notify.BufferSize = 0

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero notify buffer")
	}
}

func TestValidate_JournalWithoutDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Journal.Enabled = true
	cfg.Journal.DSN = ""

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty journal dsn")
	}
}

func TestValidate_InvalidHTTPPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Port = 99999

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid HTTP port")
	}

	cfg.HTTP.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("port is ignored when HTTP is disabled, got %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "invalid"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Format = "xml"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log format")
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/livinlefevreloca/queuedash/internal/journal"
	"github.com/livinlefevreloca/queuedash/internal/notify"
	"github.com/livinlefevreloca/queuedash/internal/poller"
	"github.com/livinlefevreloca/queuedash/internal/queueclient"
)

// Environment variables that override file settings
const (
	EnvEngineURL   = "QUEUEDASH_ENGINE_URL"
	EnvHTTPAddress = "QUEUEDASH_HTTP_ADDRESS"
	EnvHTTPPort    = "QUEUEDASH_HTTP_PORT"
	EnvLogLevel    = "QUEUEDASH_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Engine  queueclient.Config `toml:"engine" yaml:"engine"`
	Poller  poller.Config      `toml:"poller" yaml:"poller"`
	Notify  notify.Config      `toml:"notify" yaml:"notify"`
	Journal journal.Config     `toml:"journal" yaml:"journal"`
	HTTP    HTTPConfig         `toml:"http" yaml:"http"`
	Logging LoggingConfig      `toml:"logging" yaml:"logging"`
}

// HTTPConfig holds operator API server settings
type HTTPConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Address string `toml:"address" yaml:"address"`
	Port    int    `toml:"port" yaml:"port"`

	// Query parameter that carries the operator's delete confirmation
	ConfirmParam string `toml:"confirm_param" yaml:"confirm_param"`
}

// Addr returns host:port for net/http
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Address, h.Port)
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Engine:  queueclient.DefaultConfig(),
		Poller:  poller.DefaultConfig(),
		Notify:  notify.DefaultConfig(),
		Journal: journal.DefaultConfig(),
		HTTP: HTTPConfig{
			Enabled:      true,
			Address:      "127.0.0.1",
			Port:         8080,
			ConfirmParam: "confirm",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromFile loads configuration from a TOML or YAML file, chosen by
// extension. Unset keys keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Environment variables
// 4. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		fileConfig, err := LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEngineURL); ok && v != "" {
		c.Engine.BaseURL = v
	}
	if v, ok := lookup(EnvHTTPAddress); ok && v != "" {
		c.HTTP.Address = v
	}
	if v, ok := lookup(EnvHTTPPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHTTPPort, err)
		}
		c.HTTP.Port = port
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}

	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller interval must be positive, got %v", c.Poller.Interval)
	}

	if c.Notify.BufferSize <= 0 {
		return fmt.Errorf("notify buffer_size must be positive, got %d", c.Notify.BufferSize)
	}
	if c.Notify.SendTimeout < 0 {
		return fmt.Errorf("notify send_timeout must not be negative, got %v", c.Notify.SendTimeout)
	}

	if err := c.Journal.Validate(); err != nil {
		return err
	}

	if c.HTTP.Enabled {
		if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
			return fmt.Errorf("HTTP port must be between 1 and 65535")
		}
		if c.HTTP.ConfirmParam == "" {
			return fmt.Errorf("HTTP confirm_param must be specified")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

package queueclient

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the engine connection settings
type Config struct {
	// Base URL of the queue engine REST API (scheme://host:port)
	BaseURL string `toml:"base_url" yaml:"base_url"`

	// Per-request timeout; covers connect, headers and body
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// Client-side request rate limit; 0 disables limiting
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `toml:"burst" yaml:"burst"`
}

// DefaultConfig returns settings matching a locally running engine
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://127.0.0.1:8000",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 0,
		Burst:             10,
	}
}

// Validate checks the connection settings
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("engine base_url must be specified")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid engine base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("engine base_url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("engine base_url %q has no host", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("engine timeout must be positive, got %v", c.Timeout)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("engine requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("engine burst must be positive when rate limiting, got %d", c.Burst)
	}
	return nil
}

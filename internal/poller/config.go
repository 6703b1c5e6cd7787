package poller

import (
	"fmt"
	"time"
)

// Config defines the polling cadence
type Config struct {
	// Period between scheduled poll cycles
	Interval time.Duration `toml:"interval" yaml:"interval"`

	// Run one cycle as soon as Start is called instead of waiting a full period
	PollOnStart bool `toml:"poll_on_start" yaml:"poll_on_start"`

	// Discard responses that were issued before the one already committed
	StaleGuard bool `toml:"stale_guard" yaml:"stale_guard"`
}

// DefaultConfig returns the dashboard's standard 3s cadence
func DefaultConfig() Config {
	return Config{
		Interval:    3 * time.Second,
		PollOnStart: true,
		StaleGuard:  true,
	}
}

// validateConfig validates poller configuration and returns error if invalid
func validateConfig(config Config) error {
	if config.Interval <= 0 {
		return fmt.Errorf("Interval must be positive, got %v", config.Interval)
	}
	return nil
}

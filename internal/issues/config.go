package issues

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds issue lifecycle settings.
type Config struct {
	// RegressionWatchDays is the post-resolve recurrence window.
	RegressionWatchDays int `toml:"regression_watch_days" json:"regression_watch_days"`
	// SnoozeMaxDays bounds the snooze action's days parameter.
	SnoozeMaxDays int `toml:"snooze_max_days" json:"snooze_max_days"`
}

// ConfigEnv maps environment variable names for issue configuration.
type ConfigEnv struct {
	RegressionWatchDays string
	SnoozeMaxDays       string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-zero values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.RegressionWatchDays != 0 {
		c.RegressionWatchDays = overlay.RegressionWatchDays
	}
	if overlay.SnoozeMaxDays != 0 {
		c.SnoozeMaxDays = overlay.SnoozeMaxDays
	}
}

func (c *Config) loadDefaults() {
	if c.RegressionWatchDays <= 0 {
		c.RegressionWatchDays = 90
	}
	if c.SnoozeMaxDays <= 0 {
		c.SnoozeMaxDays = 30
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.RegressionWatchDays != "" {
		if v := os.Getenv(env.RegressionWatchDays); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RegressionWatchDays = n
			}
		}
	}
	if env.SnoozeMaxDays != "" {
		if v := os.Getenv(env.SnoozeMaxDays); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SnoozeMaxDays = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.RegressionWatchDays < 1 {
		return fmt.Errorf("regression_watch_days must be positive")
	}
	if c.SnoozeMaxDays < 1 {
		return fmt.Errorf("snooze_max_days must be positive")
	}
	return nil
}

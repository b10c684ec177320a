package inbox

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds inbox lifecycle settings.
type Config struct {
	// SnoozeMaxDays bounds the snooze action's days parameter.
	SnoozeMaxDays int `toml:"snooze_max_days" json:"snooze_max_days"`
}

// ConfigEnv maps environment variable names for inbox configuration.
type ConfigEnv struct {
	SnoozeMaxDays string
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
	if overlay.SnoozeMaxDays != 0 {
		c.SnoozeMaxDays = overlay.SnoozeMaxDays
	}
}

func (c *Config) loadDefaults() {
	if c.SnoozeMaxDays <= 0 {
		c.SnoozeMaxDays = 30
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.SnoozeMaxDays != "" {
		if v := os.Getenv(env.SnoozeMaxDays); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SnoozeMaxDays = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.SnoozeMaxDays < 1 {
		return fmt.Errorf("snooze_max_days must be positive")
	}
	return nil
}

package sweeps

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
)

// Config holds sweep scheduling settings.
type Config struct {
	// Schedule is a cron expression; every sweep job is idempotent, so an
	// aggressive schedule costs work but never correctness.
	Schedule string `toml:"schedule" json:"schedule"`
	// RunOnStartup triggers one sweep cycle immediately after startup,
	// covering timers that expired while the process was down.
	RunOnStartup bool `toml:"run_on_startup" json:"run_on_startup"`
}

// ConfigEnv maps environment variable names for sweep configuration.
type ConfigEnv struct {
	Schedule     string
	RunOnStartup string
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
	if overlay.Schedule != "" {
		c.Schedule = overlay.Schedule
	}
	if overlay.RunOnStartup {
		c.RunOnStartup = true
	}
}

func (c *Config) loadDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@hourly"
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.Schedule != "" {
		if v := os.Getenv(env.Schedule); v != "" {
			c.Schedule = v
		}
	}
	if env.RunOnStartup != "" {
		if v := os.Getenv(env.RunOnStartup); v == "true" {
			c.RunOnStartup = true
		}
	}
}

func (c *Config) validate() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.Schedule, err)
	}
	return nil
}

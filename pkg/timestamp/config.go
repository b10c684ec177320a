package timestamp

import (
	"fmt"
	"os"
)

// Config holds the organization timezone setting.
type Config struct {
	Timezone string `toml:"timezone"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Timezone string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Timezone != "" {
		c.Timezone = overlay.Timezone
	}
}

// Org constructs the day-boundary calculator for the configured zone.
func (c *Config) Org() (*Org, error) {
	return NewOrg(c.Timezone)
}

func (c *Config) loadDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Timezone != "" {
		if v := os.Getenv(env.Timezone); v != "" {
			c.Timezone = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := NewOrg(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

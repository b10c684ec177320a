package canary

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds canary scan settings.
type Config struct {
	// MaxRowsPerCheck caps each column scan; the canary samples, it does not
	// audit exhaustively.
	MaxRowsPerCheck int `toml:"max_rows_per_check" json:"max_rows_per_check"`
}

// ConfigEnv maps environment variable names for canary configuration.
type ConfigEnv struct {
	MaxRowsPerCheck string
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
	if overlay.MaxRowsPerCheck != 0 {
		c.MaxRowsPerCheck = overlay.MaxRowsPerCheck
	}
}

func (c *Config) loadDefaults() {
	if c.MaxRowsPerCheck <= 0 {
		c.MaxRowsPerCheck = 10000
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.MaxRowsPerCheck != "" {
		if v := os.Getenv(env.MaxRowsPerCheck); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxRowsPerCheck = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.MaxRowsPerCheck < 1 {
		return fmt.Errorf("max_rows_per_check must be positive")
	}
	return nil
}

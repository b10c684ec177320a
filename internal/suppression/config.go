package suppression

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds per-item-type suppression TTLs in days. Zero means "use the
// default", not "permanent"; permanence is expressed by a rule with no
// expiry.
type Config struct {
	IssueTTLDays         int `toml:"issue_ttl_days" json:"issue_ttl_days"`
	FlaggedSignalTTLDays int `toml:"flagged_signal_ttl_days" json:"flagged_signal_ttl_days"`
	OrphanTTLDays        int `toml:"orphan_ttl_days" json:"orphan_ttl_days"`
	AmbiguousTTLDays     int `toml:"ambiguous_ttl_days" json:"ambiguous_ttl_days"`
}

// ConfigEnv maps environment variable names for suppression configuration.
type ConfigEnv struct {
	IssueTTLDays         string
	FlaggedSignalTTLDays string
	OrphanTTLDays        string
	AmbiguousTTLDays     string
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
	if overlay.IssueTTLDays != 0 {
		c.IssueTTLDays = overlay.IssueTTLDays
	}
	if overlay.FlaggedSignalTTLDays != 0 {
		c.FlaggedSignalTTLDays = overlay.FlaggedSignalTTLDays
	}
	if overlay.OrphanTTLDays != 0 {
		c.OrphanTTLDays = overlay.OrphanTTLDays
	}
	if overlay.AmbiguousTTLDays != 0 {
		c.AmbiguousTTLDays = overlay.AmbiguousTTLDays
	}
}

// TTLDays returns the configured TTL for an item type.
func (c *Config) TTLDays(itemType string) int {
	switch itemType {
	case ItemIssue:
		return c.IssueTTLDays
	case ItemFlaggedSignal:
		return c.FlaggedSignalTTLDays
	case ItemOrphan:
		return c.OrphanTTLDays
	case ItemAmbiguous:
		return c.AmbiguousTTLDays
	}
	return c.FlaggedSignalTTLDays
}

func (c *Config) loadDefaults() {
	if c.IssueTTLDays <= 0 {
		c.IssueTTLDays = 90
	}
	if c.FlaggedSignalTTLDays <= 0 {
		c.FlaggedSignalTTLDays = 30
	}
	if c.OrphanTTLDays <= 0 {
		c.OrphanTTLDays = 180
	}
	if c.AmbiguousTTLDays <= 0 {
		c.AmbiguousTTLDays = 30
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	assign := func(key string, dest *int) {
		if key == "" {
			return
		}
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dest = n
			}
		}
	}

	assign(env.IssueTTLDays, &c.IssueTTLDays)
	assign(env.FlaggedSignalTTLDays, &c.FlaggedSignalTTLDays)
	assign(env.OrphanTTLDays, &c.OrphanTTLDays)
	assign(env.AmbiguousTTLDays, &c.AmbiguousTTLDays)
}

func (c *Config) validate() error {
	for name, v := range map[string]int{
		"issue_ttl_days":          c.IssueTTLDays,
		"flagged_signal_ttl_days": c.FlaggedSignalTTLDays,
		"orphan_ttl_days":         c.OrphanTTLDays,
		"ambiguous_ttl_days":      c.AmbiguousTTLDays,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

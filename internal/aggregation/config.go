package aggregation

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds aggregation and resolver settings.
type Config struct {
	// AutoLinkConfidence: resolver matches at or above this are linked
	// without asking.
	AutoLinkConfidence float64 `toml:"auto_link_confidence" json:"auto_link_confidence"`
	// ProposeConfidence: matches at or above this are offered as ambiguous
	// candidates; below, the signal becomes an orphan with suggestions only.
	ProposeConfidence float64 `toml:"propose_confidence" json:"propose_confidence"`
	// CandidateLimit caps the ranked candidate list served on ambiguous items.
	CandidateLimit int `toml:"candidate_limit" json:"candidate_limit"`
	// SeverityWindowDays is the org-local day window severity thresholds
	// count signals within.
	SeverityWindowDays int `toml:"severity_window_days" json:"severity_window_days"`
}

// ConfigEnv maps environment variable names for aggregation configuration.
type ConfigEnv struct {
	AutoLinkConfidence string
	ProposeConfidence  string
	CandidateLimit     string
	SeverityWindowDays string
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
	if overlay.AutoLinkConfidence != 0 {
		c.AutoLinkConfidence = overlay.AutoLinkConfidence
	}
	if overlay.ProposeConfidence != 0 {
		c.ProposeConfidence = overlay.ProposeConfidence
	}
	if overlay.CandidateLimit != 0 {
		c.CandidateLimit = overlay.CandidateLimit
	}
	if overlay.SeverityWindowDays != 0 {
		c.SeverityWindowDays = overlay.SeverityWindowDays
	}
}

func (c *Config) loadDefaults() {
	if c.AutoLinkConfidence == 0 {
		c.AutoLinkConfidence = 0.85
	}
	if c.ProposeConfidence == 0 {
		c.ProposeConfidence = 0.45
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 5
	}
	if c.SeverityWindowDays <= 0 {
		c.SeverityWindowDays = 14
	}
}

func (c *Config) loadEnv(env *ConfigEnv) {
	if env.AutoLinkConfidence != "" {
		if v := os.Getenv(env.AutoLinkConfidence); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.AutoLinkConfidence = f
			}
		}
	}
	if env.ProposeConfidence != "" {
		if v := os.Getenv(env.ProposeConfidence); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.ProposeConfidence = f
			}
		}
	}
	if env.CandidateLimit != "" {
		if v := os.Getenv(env.CandidateLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.CandidateLimit = n
			}
		}
	}
	if env.SeverityWindowDays != "" {
		if v := os.Getenv(env.SeverityWindowDays); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.SeverityWindowDays = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.AutoLinkConfidence <= 0 || c.AutoLinkConfidence > 1 {
		return fmt.Errorf("auto_link_confidence must be in (0, 1]")
	}
	if c.ProposeConfidence <= 0 || c.ProposeConfidence > c.AutoLinkConfidence {
		return fmt.Errorf("propose_confidence must be in (0, auto_link_confidence]")
	}
	if c.CandidateLimit < 1 {
		return fmt.Errorf("candidate_limit must be positive")
	}
	if c.SeverityWindowDays < 1 {
		return fmt.Errorf("severity_window_days must be positive")
	}
	return nil
}

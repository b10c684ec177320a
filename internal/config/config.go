// Package config assembles the layered service configuration: TOML base
// file, environment overlay file, then environment variables, finalized and
// validated as one unit.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/pulse/internal/aggregation"
	"github.com/JaimeStill/pulse/internal/canary"
	"github.com/JaimeStill/pulse/internal/inbox"
	"github.com/JaimeStill/pulse/internal/issues"
	"github.com/JaimeStill/pulse/internal/suppression"
	"github.com/JaimeStill/pulse/internal/sweeps"
	"github.com/JaimeStill/pulse/pkg/database"
	"github.com/JaimeStill/pulse/pkg/storage"
	"github.com/JaimeStill/pulse/pkg/timestamp"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPulseEnv             = "PULSE_ENV"
	EnvPulseShutdownTimeout = "PULSE_SHUTDOWN_TIMEOUT"
	EnvPulseVersion         = "PULSE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "PULSE_DB_HOST",
	Port:            "PULSE_DB_PORT",
	Name:            "PULSE_DB_NAME",
	User:            "PULSE_DB_USER",
	Password:        "PULSE_DB_PASSWORD",
	SSLMode:         "PULSE_DB_SSL_MODE",
	MaxOpenConns:    "PULSE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PULSE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PULSE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PULSE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "PULSE_STORAGE_CONTAINER_NAME",
	ConnectionString: "PULSE_STORAGE_CONNECTION_STRING",
}

var orgEnv = &timestamp.Env{
	Timezone: "PULSE_ORG_TIMEZONE",
}

var issuesEnv = &issues.ConfigEnv{
	RegressionWatchDays: "PULSE_ISSUES_REGRESSION_WATCH_DAYS",
	SnoozeMaxDays:       "PULSE_ISSUES_SNOOZE_MAX_DAYS",
}

var inboxEnv = &inbox.ConfigEnv{
	SnoozeMaxDays: "PULSE_INBOX_SNOOZE_MAX_DAYS",
}

var suppressionEnv = &suppression.ConfigEnv{
	IssueTTLDays:         "PULSE_SUPPRESSION_ISSUE_TTL_DAYS",
	FlaggedSignalTTLDays: "PULSE_SUPPRESSION_FLAGGED_SIGNAL_TTL_DAYS",
	OrphanTTLDays:        "PULSE_SUPPRESSION_ORPHAN_TTL_DAYS",
	AmbiguousTTLDays:     "PULSE_SUPPRESSION_AMBIGUOUS_TTL_DAYS",
}

var aggregationEnv = &aggregation.ConfigEnv{
	AutoLinkConfidence: "PULSE_AGGREGATION_AUTO_LINK_CONFIDENCE",
	ProposeConfidence:  "PULSE_AGGREGATION_PROPOSE_CONFIDENCE",
	CandidateLimit:     "PULSE_AGGREGATION_CANDIDATE_LIMIT",
	SeverityWindowDays: "PULSE_AGGREGATION_SEVERITY_WINDOW_DAYS",
}

var sweepsEnv = &sweeps.ConfigEnv{
	Schedule:     "PULSE_SWEEPS_SCHEDULE",
	RunOnStartup: "PULSE_SWEEPS_RUN_ON_STARTUP",
}

var canaryEnv = &canary.ConfigEnv{
	MaxRowsPerCheck: "PULSE_CANARY_MAX_ROWS_PER_CHECK",
}

// Config is the root configuration for the Pulse service.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	API             APIConfig          `toml:"api"`
	Org             timestamp.Config   `toml:"org"`
	Issues          issues.Config      `toml:"issues"`
	Inbox           inbox.Config       `toml:"inbox"`
	Suppression     suppression.Config `toml:"suppression"`
	Aggregation     aggregation.Config `toml:"aggregation"`
	Sweeps          sweeps.Config      `toml:"sweeps"`
	Canary          canary.Config      `toml:"canary"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
}

// Env returns the PULSE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPulseEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Org.Merge(&overlay.Org)
	c.Issues.Merge(&overlay.Issues)
	c.Inbox.Merge(&overlay.Inbox)
	c.Suppression.Merge(&overlay.Suppression)
	c.Aggregation.Merge(&overlay.Aggregation)
	c.Sweeps.Merge(&overlay.Sweeps)
	c.Canary.Merge(&overlay.Canary)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Org.Finalize(orgEnv); err != nil {
		return fmt.Errorf("org: %w", err)
	}
	if err := c.Issues.Finalize(issuesEnv); err != nil {
		return fmt.Errorf("issues: %w", err)
	}
	if err := c.Inbox.Finalize(inboxEnv); err != nil {
		return fmt.Errorf("inbox: %w", err)
	}
	if err := c.Suppression.Finalize(suppressionEnv); err != nil {
		return fmt.Errorf("suppression: %w", err)
	}
	if err := c.Aggregation.Finalize(aggregationEnv); err != nil {
		return fmt.Errorf("aggregation: %w", err)
	}
	if err := c.Sweeps.Finalize(sweepsEnv); err != nil {
		return fmt.Errorf("sweeps: %w", err)
	}
	if err := c.Canary.Finalize(canaryEnv); err != nil {
		return fmt.Errorf("canary: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvPulseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvPulseVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvPulseEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

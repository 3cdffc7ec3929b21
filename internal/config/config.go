// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kurslab/reviewd/internal/filter"
)

// ServiceConfig is the top-level configuration for the review service
type ServiceConfig struct {
	// ListenAddr is the HTTP bind address
	// Default: ":8080", env: REVIEWD_LISTEN_ADDR
	ListenAddr string `yaml:"listen_addr"`

	// AuthToken, when set, requires a matching bearer token on API calls.
	// Empty means open access (the platform gateway authenticates).
	// Env: REVIEWD_AUTH_TOKEN
	AuthToken string `yaml:"auth_token"`

	// DatabasePath is the SQLite database file
	// Default: ".reviewd/reviewd.db", env: REVIEWD_DB_PATH
	DatabasePath string `yaml:"database_path"`

	// Model overrides the review model (default comes from the ai package)
	// Env: REVIEWD_MODEL
	Model string `yaml:"model"`

	// PollIntervalSeconds is how often the CLI polls a running review
	// Default: 5, Range: 1-300
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// RunTimeoutSeconds bounds one background review run
	// Default: 300, Range: 30-3600
	RunTimeoutSeconds int `yaml:"run_timeout_seconds"`

	// TriggerPerMinute rate-limits the HTTP trigger endpoint
	// Default: 30, Range: 1-600
	TriggerPerMinute int `yaml:"trigger_per_minute"`

	// EventRetentionDays is how long review audit events are kept before
	// pruning. Set to 0 to disable pruning.
	// Default: 30, Range: 0-365
	EventRetentionDays int `yaml:"event_retention_days"`

	// Filter holds optional overrides for the question filter thresholds.
	// Unset fields keep the filter package defaults.
	Filter FilterOverrides `yaml:"filter"`
}

// FilterOverrides mirrors the filter thresholds as optional YAML fields
type FilterOverrides struct {
	MinQuestionLength  *int     `yaml:"min_question_length"`
	MinSourceLength    *int     `yaml:"min_source_length"`
	AnsweredThreshold  *float64 `yaml:"answered_threshold"`
	DuplicateThreshold *float64 `yaml:"duplicate_threshold"`
	TrivialMaxKeywords *int     `yaml:"trivial_max_keywords"`
}

// Apply overlays the set overrides onto a filter configuration
func (o *FilterOverrides) Apply(cfg *filter.Config) {
	if o.MinQuestionLength != nil {
		cfg.MinQuestionLength = *o.MinQuestionLength
	}
	if o.MinSourceLength != nil {
		cfg.MinSourceLength = *o.MinSourceLength
	}
	if o.AnsweredThreshold != nil {
		cfg.AnsweredThreshold = *o.AnsweredThreshold
	}
	if o.DuplicateThreshold != nil {
		cfg.DuplicateThreshold = *o.DuplicateThreshold
	}
	if o.TrivialMaxKeywords != nil {
		cfg.TrivialMaxKeywords = *o.TrivialMaxKeywords
	}
}

// Default returns the default service configuration
func Default() *ServiceConfig {
	return &ServiceConfig{
		ListenAddr:          ":8080",
		DatabasePath:        ".reviewd/reviewd.db",
		PollIntervalSeconds: 5,
		RunTimeoutSeconds:   300,
		TriggerPerMinute:    30,
		EventRetentionDays:  30,
	}
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates. An empty
// path skips the file entirely.
func Load(path string) (*ServiceConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded values
func (c *ServiceConfig) applyEnv() {
	if v := os.Getenv("REVIEWD_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("REVIEWD_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := os.Getenv("REVIEWD_DB_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("REVIEWD_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("REVIEWD_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PollIntervalSeconds = n
		}
	}
	if v := os.Getenv("REVIEWD_RUN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RunTimeoutSeconds = n
		}
	}
}

// Validate checks configuration ranges
func (c *ServiceConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.PollIntervalSeconds < 1 || c.PollIntervalSeconds > 300 {
		return fmt.Errorf("poll_interval_seconds must be between 1 and 300 (got %d)", c.PollIntervalSeconds)
	}
	if c.RunTimeoutSeconds < 30 || c.RunTimeoutSeconds > 3600 {
		return fmt.Errorf("run_timeout_seconds must be between 30 and 3600 (got %d)", c.RunTimeoutSeconds)
	}
	if c.TriggerPerMinute < 1 || c.TriggerPerMinute > 600 {
		return fmt.Errorf("trigger_per_minute must be between 1 and 600 (got %d)", c.TriggerPerMinute)
	}
	if c.EventRetentionDays < 0 || c.EventRetentionDays > 365 {
		return fmt.Errorf("event_retention_days must be between 0 and 365 (got %d)", c.EventRetentionDays)
	}
	return nil
}

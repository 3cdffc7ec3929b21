package filter

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the tunable thresholds for question filtering
type Config struct {
	// MinQuestionLength is the minimum question length in runes.
	// Anything shorter is rejected as empty_or_short before any other check.
	// Default: 10
	MinQuestionLength int

	// MinSourceLength is the minimum source text length in runes required
	// before the already-answered check is performed at all. Shorter sources
	// are insufficient evidence and the check returns false without
	// computing overlap.
	// Default: 80
	MinSourceLength int

	// AnsweredThreshold is the keyword overlap ratio (0.0-1.0) at or above
	// which a question counts as already answered by a source text.
	// Higher values = fewer questions suppressed.
	// Default: 0.7
	AnsweredThreshold float64

	// DuplicateThreshold is the keyword overlap ratio (0.0-1.0) at or above
	// which a question counts as a near-duplicate of a previous question or
	// of an already-accepted candidate in the same batch. Exact matches after
	// normalization are duplicates regardless of this threshold.
	// Default: 0.75
	DuplicateThreshold float64

	// TrivialMaxKeywords is the keyword count at or below which a bare
	// "what is X" question counts as trivial. The same template followed by a
	// comparative or contextual clause carries extra keywords and survives.
	// Default: 3
	TrivialMaxKeywords int
}

// DefaultConfig returns the default filter configuration.
//
// The thresholds are validated against the behavioral scenarios in the
// package tests rather than derived analytically; adjust with care.
func DefaultConfig() Config {
	return Config{
		MinQuestionLength:  10,
		MinSourceLength:    80,
		AnsweredThreshold:  0.7,
		DuplicateThreshold: 0.75,
		TrivialMaxKeywords: 3,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MinQuestionLength < 1 {
		return fmt.Errorf("min_question_length must be positive (got %d)", c.MinQuestionLength)
	}
	if c.MinQuestionLength > 500 {
		return fmt.Errorf("min_question_length too large (got %d, max 500)", c.MinQuestionLength)
	}
	if c.MinSourceLength < 0 {
		return fmt.Errorf("min_source_length cannot be negative (got %d)", c.MinSourceLength)
	}
	if c.AnsweredThreshold <= 0.0 || c.AnsweredThreshold > 1.0 {
		return fmt.Errorf("answered_threshold must be in (0.0, 1.0] (got %.2f)", c.AnsweredThreshold)
	}
	if c.DuplicateThreshold <= 0.0 || c.DuplicateThreshold > 1.0 {
		return fmt.Errorf("duplicate_threshold must be in (0.0, 1.0] (got %.2f)", c.DuplicateThreshold)
	}
	if c.TrivialMaxKeywords < 0 {
		return fmt.Errorf("trivial_max_keywords cannot be negative (got %d)", c.TrivialMaxKeywords)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{MinQuestion: %d, MinSource: %d, Answered: %.2f, Duplicate: %.2f, TrivialKeywords: %d}",
		c.MinQuestionLength, c.MinSourceLength, c.AnsweredThreshold,
		c.DuplicateThreshold, c.TrivialMaxKeywords,
	)
}

// ConfigFromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - REVIEWD_FILTER_MIN_QUESTION_LENGTH: Minimum question length in runes (default: 10)
//   - REVIEWD_FILTER_MIN_SOURCE_LENGTH: Minimum source length for the answered check (default: 80)
//   - REVIEWD_FILTER_ANSWERED_THRESHOLD: Overlap ratio to count as already answered (default: 0.7)
//   - REVIEWD_FILTER_DUPLICATE_THRESHOLD: Overlap ratio to count as near-duplicate (default: 0.75)
//   - REVIEWD_FILTER_TRIVIAL_MAX_KEYWORDS: Keyword ceiling for bare definition asks (default: 3)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvInt("REVIEWD_FILTER_MIN_QUESTION_LENGTH", &cfg.MinQuestionLength); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("REVIEWD_FILTER_MIN_SOURCE_LENGTH", &cfg.MinSourceLength); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("REVIEWD_FILTER_ANSWERED_THRESHOLD", &cfg.AnsweredThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("REVIEWD_FILTER_DUPLICATE_THRESHOLD", &cfg.DuplicateThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("REVIEWD_FILTER_TRIVIAL_MAX_KEYWORDS", &cfg.TrivialMaxKeywords); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}

	return cfg, nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

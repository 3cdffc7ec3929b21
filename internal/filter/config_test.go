package filter

import (
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{
			name:     "zero min question length",
			mutate:   func(c *Config) { c.MinQuestionLength = 0 },
			errorMsg: "min_question_length must be positive",
		},
		{
			name:     "min question length too large",
			mutate:   func(c *Config) { c.MinQuestionLength = 1000 },
			errorMsg: "min_question_length too large",
		},
		{
			name:     "negative min source length",
			mutate:   func(c *Config) { c.MinSourceLength = -1 },
			errorMsg: "min_source_length cannot be negative",
		},
		{
			name:     "answered threshold zero",
			mutate:   func(c *Config) { c.AnsweredThreshold = 0 },
			errorMsg: "answered_threshold must be in",
		},
		{
			name:     "answered threshold above one",
			mutate:   func(c *Config) { c.AnsweredThreshold = 1.5 },
			errorMsg: "answered_threshold must be in",
		},
		{
			name:     "duplicate threshold above one",
			mutate:   func(c *Config) { c.DuplicateThreshold = 2.0 },
			errorMsg: "duplicate_threshold must be in",
		},
		{
			name:     "negative trivial max keywords",
			mutate:   func(c *Config) { c.TrivialMaxKeywords = -2 },
			errorMsg: "trivial_max_keywords cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg != DefaultConfig() {
			t.Errorf("expected defaults, got %s", cfg)
		}
	})

	t.Run("overrides applied", func(t *testing.T) {
		t.Setenv("REVIEWD_FILTER_MIN_QUESTION_LENGTH", "5")
		t.Setenv("REVIEWD_FILTER_DUPLICATE_THRESHOLD", "0.9")

		cfg, err := ConfigFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MinQuestionLength != 5 {
			t.Errorf("MinQuestionLength = %d, want 5", cfg.MinQuestionLength)
		}
		if cfg.DuplicateThreshold != 0.9 {
			t.Errorf("DuplicateThreshold = %v, want 0.9", cfg.DuplicateThreshold)
		}
	})

	t.Run("invalid value rejected", func(t *testing.T) {
		t.Setenv("REVIEWD_FILTER_ANSWERED_THRESHOLD", "not-a-number")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected error for invalid float")
		}
	})

	t.Run("out of range value rejected", func(t *testing.T) {
		t.Setenv("REVIEWD_FILTER_ANSWERED_THRESHOLD", "3.0")
		if _, err := ConfigFromEnv(); err == nil {
			t.Error("expected validation error for out-of-range threshold")
		}
	})
}

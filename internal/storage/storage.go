package storage

import (
	"context"
	"errors"
	"time"

	"github.com/kurslab/reviewd/internal/storage/sqlite"
	"github.com/kurslab/reviewd/internal/types"
)

// ErrStaleRun is returned when a terminal transition targets a run that has
// been superseded by a forced re-trigger. The caller should drop its result.
var ErrStaleRun = sqlite.ErrStaleRun

// Storage defines the interface for review persistence backends
type Storage interface {
	// Submissions
	CreateSubmission(ctx context.Context, sub *types.Submission) error
	GetSubmission(ctx context.Context, id string) (*types.Submission, error)

	// Review lifecycle. ClaimReview is the compare-and-transition trigger:
	// it either starts a run (started=true, fresh run id) or returns the
	// current record untouched for an idempotent non-forced trigger.
	// CompleteReview and FailReview key on the run id and refuse to touch a
	// record owned by a newer run.
	ClaimReview(ctx context.Context, submissionID string, force bool, actor string) (*types.Review, bool, error)
	GetReviewBySubmission(ctx context.Context, submissionID string) (*types.Review, error)
	CompleteReview(ctx context.Context, runID string, analysis *types.Analysis, questions []*types.CandidateQuestion, coverage *types.Coverage) error
	FailReview(ctx context.Context, runID, errorMessage string) error

	// Trail questions - questions asked on earlier runs, fed back into
	// duplicate detection so a re-run does not resurface them
	AddTrailQuestions(ctx context.Context, trailID string, questions []string) error
	GetTrailQuestions(ctx context.Context, trailID string) ([]string, error)

	// Audit trail
	GetReviewEvents(ctx context.Context, submissionID string, limit int) ([]*types.ReviewEvent, error)
	PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error)

	// Config
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".reviewd/reviewd.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".reviewd/reviewd.db",
	}
}

// NewStorage creates a new SQLite storage backend
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = ".reviewd/reviewd.db"
	}
	return sqlite.New(cfg.Path)
}

// IsStaleRun reports whether err is (or wraps) ErrStaleRun
func IsStaleRun(err error) bool {
	return errors.Is(err, ErrStaleRun)
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kurslab/reviewd/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the HTTP handlers and the
	// background runner
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// CreateSubmission stores a submission's text snapshots
func (s *SQLiteStorage) CreateSubmission(ctx context.Context, sub *types.Submission) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			id, trail_id, student_id, submission_text, file_text, module_text, trail_text, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.TrailID, sub.StudentID, sub.Text, sub.FileText, sub.ModuleText, sub.TrailText, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID. Returns nil, nil when absent.
func (s *SQLiteStorage) GetSubmission(ctx context.Context, id string) (*types.Submission, error) {
	var sub types.Submission
	err := s.db.QueryRowContext(ctx, `
		SELECT id, trail_id, student_id, submission_text, file_text, module_text, trail_text, created_at
		FROM submissions
		WHERE id = ?
	`, id).Scan(
		&sub.ID, &sub.TrailID, &sub.StudentID, &sub.Text,
		&sub.FileText, &sub.ModuleText, &sub.TrailText, &sub.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &sub, nil
}

// AddTrailQuestions records questions asked on a completed run
func (s *SQLiteStorage) AddTrailQuestions(ctx context.Context, trailID string, questions []string) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, q := range questions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO trail_questions (trail_id, question, created_at)
			VALUES (?, ?, ?)
		`, trailID, q, now); err != nil {
			return fmt.Errorf("failed to insert trail question: %w", err)
		}
	}

	return tx.Commit()
}

// GetTrailQuestions returns all questions previously asked within a trail,
// oldest first
func (s *SQLiteStorage) GetTrailQuestions(ctx context.Context, trailID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question FROM trail_questions
		WHERE trail_id = ?
		ORDER BY id ASC
	`, trailID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trail questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan trail question: %w", err)
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

// GetReviewEvents returns the audit trail for a submission, newest first
func (s *SQLiteStorage) GetReviewEvents(ctx context.Context, submissionID string, limit int) ([]*types.ReviewEvent, error) {
	limitSQL := ""
	if limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submission_id, event_type, actor, COALESCE(comment, ''), created_at
		FROM review_events
		WHERE submission_id = ?
		ORDER BY id DESC`+limitSQL, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review events: %w", err)
	}
	defer rows.Close()

	var events []*types.ReviewEvent
	for rows.Next() {
		var ev types.ReviewEvent
		if err := rows.Scan(&ev.ID, &ev.SubmissionID, &ev.EventType, &ev.Actor, &ev.Comment, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review event: %w", err)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

// PruneEvents deletes audit events older than the retention window and
// returns how many were removed
func (s *SQLiteStorage) PruneEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM review_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune review events: %w", err)
	}
	return res.RowsAffected()
}

// GetConfig gets a configuration value from the config table
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig sets a configuration value in the config table
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kurslab/reviewd/internal/types"
)

// ErrStaleRun is returned when CompleteReview or FailReview targets a run id
// that no longer owns the review record (a forced re-trigger replaced it).
var ErrStaleRun = errors.New("review run superseded by a newer trigger")

// ClaimReview atomically creates or restarts the review record for a
// submission, enforcing at-most-one in-flight run.
//
// Transition rules:
//   - no record, or terminal failed: start a run
//   - terminal completed: start a run only when forced
//   - pending/processing, not forced: no-op, return the current record
//   - pending/processing, forced: restart (the old run becomes stale)
//
// Starting a run assigns a fresh run id and clears prior analysis, questions
// and error message. The whole decision executes under BEGIN IMMEDIATE so two
// near-simultaneous triggers serialize on the write lock instead of racing a
// read-then-write; the loser of the race observes the winner's 'processing'
// row and no-ops.
func (s *SQLiteStorage) ClaimReview(ctx context.Context, submissionID string, force bool, actor string) (*types.Review, bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	// IMMEDIATE acquires the write lock up front. database/sql's BeginTx has
	// no way to request it, so raw Exec on a dedicated connection.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, false, fmt.Errorf("failed to begin immediate transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	// The submission must exist before any state transition
	var exists int
	err = conn.QueryRowContext(ctx, `SELECT 1 FROM submissions WHERE id = ?`, submissionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, false, fmt.Errorf("submission not found: %s", submissionID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to check submission: %w", err)
	}

	current, err := scanReview(conn.QueryRowContext(ctx, reviewSelect+` WHERE submission_id = ?`, submissionID))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read current review: %w", err)
	}

	if current != nil && !current.Status.IsTerminal() && !force {
		// Idempotent trigger: same run keeps going
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return current, false, nil
	}

	if current != nil && current.Status == types.StatusCompleted && !force {
		// Completed stays completed unless explicitly forced
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		committed = true
		return current, false, nil
	}

	now := time.Now()
	review := &types.Review{
		ID:           uuid.New().String(),
		SubmissionID: submissionID,
		Status:       types.StatusProcessing,
		StartedAt:    now,
	}

	if current == nil {
		_, err = conn.ExecContext(ctx, `
			INSERT INTO reviews (id, submission_id, status, started_at)
			VALUES (?, ?, ?, ?)
		`, review.ID, submissionID, review.Status, now)
	} else {
		// Restart: new run id, prior results cleared
		_, err = conn.ExecContext(ctx, `
			UPDATE reviews
			SET id = ?, status = ?, analysis = NULL, questions = NULL,
			    coverage = NULL, error_message = NULL, started_at = ?, finished_at = NULL
			WHERE submission_id = ?
		`, review.ID, review.Status, now, submissionID)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim review: %w", err)
	}

	comment := "review run started"
	if force {
		comment = "review run restarted (forced)"
	}
	_, err = conn.ExecContext(ctx, `
		INSERT INTO review_events (submission_id, event_type, actor, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, submissionID, types.EventTriggered, actor, comment, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record trigger event: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	return review, true, nil
}

// GetReviewBySubmission retrieves the current review record for a submission.
// Returns nil, nil before any trigger has occurred.
func (s *SQLiteStorage) GetReviewBySubmission(ctx context.Context, submissionID string) (*types.Review, error) {
	review, err := scanReview(s.db.QueryRowContext(ctx, reviewSelect+` WHERE submission_id = ?`, submissionID))
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// CompleteReview writes the terminal success outcome for a run.
// The UPDATE is conditioned on both the run id and 'processing' status, so a
// run replaced by a forced re-trigger gets ErrStaleRun instead of overwriting
// the newer run's record.
func (s *SQLiteStorage) CompleteReview(ctx context.Context, runID string, analysis *types.Analysis, questions []*types.CandidateQuestion, coverage *types.Coverage) error {
	if analysis == nil {
		return fmt.Errorf("analysis is required to complete a review")
	}
	if err := analysis.Validate(); err != nil {
		return fmt.Errorf("invalid analysis: %w", err)
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	coverageJSON, err := json.Marshal(coverage)
	if err != nil {
		return fmt.Errorf("failed to marshal coverage: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET status = ?, analysis = ?, questions = ?, coverage = ?,
		    error_message = NULL, finished_at = ?
		WHERE id = ? AND status = ?
	`, types.StatusCompleted, string(analysisJSON), string(questionsJSON),
		string(coverageJSON), now, runID, types.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleRun
	}

	var submissionID string
	if err := tx.QueryRowContext(ctx, `SELECT submission_id FROM reviews WHERE id = ?`, runID).Scan(&submissionID); err != nil {
		return fmt.Errorf("failed to resolve submission for run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_events (submission_id, event_type, actor, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, submissionID, types.EventCompleted, runID,
		fmt.Sprintf("review completed with %d questions", len(questions)), now)
	if err != nil {
		return fmt.Errorf("failed to record completion event: %w", err)
	}

	return tx.Commit()
}

// FailReview writes the terminal failure outcome for a run. Same stale-run
// guard as CompleteReview.
func (s *SQLiteStorage) FailReview(ctx context.Context, runID, errorMessage string) error {
	if errorMessage == "" {
		errorMessage = "review failed"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET status = ?, error_message = ?, finished_at = ?
		WHERE id = ? AND status = ?
	`, types.StatusFailed, errorMessage, now, runID, types.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrStaleRun
	}

	var submissionID string
	if err := tx.QueryRowContext(ctx, `SELECT submission_id FROM reviews WHERE id = ?`, runID).Scan(&submissionID); err != nil {
		return fmt.Errorf("failed to resolve submission for run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_events (submission_id, event_type, actor, comment, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, submissionID, types.EventFailed, runID, errorMessage, now)
	if err != nil {
		return fmt.Errorf("failed to record failure event: %w", err)
	}

	return tx.Commit()
}

const reviewSelect = `
	SELECT id, submission_id, status, analysis, questions, coverage,
	       error_message, started_at, finished_at
	FROM reviews`

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanReview reads one review row, decoding the JSON columns.
// Returns nil, nil on sql.ErrNoRows.
func scanReview(row rowScanner) (*types.Review, error) {
	var review types.Review
	var analysisJSON, questionsJSON, coverageJSON, errorMessage sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(
		&review.ID, &review.SubmissionID, &review.Status,
		&analysisJSON, &questionsJSON, &coverageJSON,
		&errorMessage, &review.StartedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis types.Analysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}
		review.Analysis = &analysis
	}
	if questionsJSON.Valid && questionsJSON.String != "" {
		if err := json.Unmarshal([]byte(questionsJSON.String), &review.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode questions: %w", err)
		}
	}
	if coverageJSON.Valid && coverageJSON.String != "" {
		var coverage types.Coverage
		if err := json.Unmarshal([]byte(coverageJSON.String), &coverage); err != nil {
			return nil, fmt.Errorf("failed to decode coverage: %w", err)
		}
		review.Coverage = &coverage
	}
	if errorMessage.Valid {
		review.ErrorMessage = errorMessage.String
	}
	if finishedAt.Valid {
		review.FinishedAt = &finishedAt.Time
	}

	return &review, nil
}

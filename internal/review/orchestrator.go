// Package review manages the background lifecycle of submission reviews:
// trigger, at-most-one in-flight run per submission, terminal outcomes.
package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kurslab/reviewd/internal/ai"
	"github.com/kurslab/reviewd/internal/filter"
	"github.com/kurslab/reviewd/internal/storage"
	"github.com/kurslab/reviewd/internal/types"
)

// ErrSubmissionNotFound is returned by Trigger for an unknown submission id
var ErrSubmissionNotFound = errors.New("submission not found")

// terminalWriteTimeout bounds the terminal CompleteReview/FailReview writes.
// These run on a fresh context: the run context is usually already expired
// when a timed-out generation needs its failure recorded.
const terminalWriteTimeout = 10 * time.Second

// Orchestrator owns the review state machine. Triggering returns immediately;
// the analysis itself runs in a tracked background goroutine and writes its
// terminal outcome through compare-and-set storage operations, so a run
// superseded by a forced re-trigger can never clobber the newer run.
type Orchestrator struct {
	store      storage.Storage
	generator  ai.Generator
	pipeline   *filter.Pipeline
	runTimeout time.Duration
	instanceID string

	wg sync.WaitGroup
}

// Config holds orchestrator configuration
type Config struct {
	Store        storage.Storage
	Generator    ai.Generator
	FilterConfig *filter.Config // nil = filter.DefaultConfig()
	RunTimeout   time.Duration  // Bound on one background run (default: 5 minutes)
}

// New creates an orchestrator
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}

	filterCfg := filter.DefaultConfig()
	if cfg.FilterConfig != nil {
		filterCfg = *cfg.FilterConfig
	}
	pipeline, err := filter.New(filterCfg)
	if err != nil {
		return nil, err
	}

	runTimeout := cfg.RunTimeout
	if runTimeout == 0 {
		runTimeout = 5 * time.Minute
	}

	return &Orchestrator{
		store:      cfg.Store,
		generator:  cfg.Generator,
		pipeline:   pipeline,
		runTimeout: runTimeout,
		instanceID: uuid.New().String(),
	}, nil
}

// Trigger starts (or restarts) a review run for a submission.
//
// The storage claim decides atomically: a non-forced trigger while a run is
// already pending/processing is a no-op that returns the current record, so
// two near-simultaneous triggers start at most one background job. A trigger
// on a failed record, or any forced trigger, starts a fresh run and discards
// prior results.
//
// Trigger returns as soon as the claim is decided; it never waits for the
// analysis.
func (o *Orchestrator) Trigger(ctx context.Context, submissionID string, force bool) (*types.Review, bool, error) {
	sub, err := o.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load submission: %w", err)
	}
	if sub == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrSubmissionNotFound, submissionID)
	}

	review, started, err := o.store.ClaimReview(ctx, submissionID, force, o.instanceID)
	if err != nil {
		return nil, false, err
	}

	if started {
		o.wg.Add(1)
		go o.run(review.ID, sub)
	}

	return review, started, nil
}

// Status returns the current review record for polling, nil before any
// trigger has occurred
func (o *Orchestrator) Status(ctx context.Context, submissionID string) (*types.Review, error) {
	return o.store.GetReviewBySubmission(ctx, submissionID)
}

// run executes one background analysis. It deliberately uses its own context:
// the triggering request's context is long gone by the time this finishes.
// Every exit path ends in a terminal record or a logged stale-run drop; a
// panic in the generator becomes a failed record, not a dead process.
func (o *Orchestrator) run(runID string, sub *types.Submission) {
	defer o.wg.Done()

	runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "review run %s panicked: %v\n", runID, r)
			o.fail(runID, fmt.Errorf("internal error during analysis"))
		}
	}()

	result, err := o.generator.GenerateReview(runCtx, &ai.Request{
		SubmissionText: sub.Text,
		FileText:       sub.FileText,
		ModuleText:     sub.ModuleText,
		TrailText:      sub.TrailText,
	})
	if err != nil {
		o.fail(runID, err)
		return
	}

	// Persistence gets its own deadline. A generation that consumed the whole
	// run budget must still land in a terminal record, never stay processing.
	ctx, cancelWrite := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancelWrite()

	previous, err := o.store.GetTrailQuestions(ctx, sub.TrailID)
	if err != nil {
		// Fail open: a broken history lookup should not kill the run, it
		// only weakens duplicate detection for this pass
		fmt.Fprintf(os.Stderr, "warning: failed to load trail questions for %s: %v\n", sub.TrailID, err)
		previous = nil
	}

	outcome := o.pipeline.Run(result.Candidates, sub.Text, sub.FileText, previous)

	err = o.store.CompleteReview(ctx, runID, result.Analysis, outcome.Accepted, result.Coverage)
	if storage.IsStaleRun(err) {
		fmt.Fprintf(os.Stderr, "review run %s superseded, dropping result\n", runID)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to complete review run %s: %v\n", runID, err)
		return
	}

	asked := make([]string, 0, len(outcome.Accepted))
	for _, q := range outcome.Accepted {
		asked = append(asked, q.Question)
	}
	if err := o.store.AddTrailQuestions(ctx, sub.TrailID, asked); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record trail questions for %s: %v\n", sub.TrailID, err)
	}
}

// fail writes the terminal failure outcome with a sanitized message. It uses
// a fresh context: the caller's run context may already be past its deadline,
// which is precisely when this write matters most.
func (o *Orchestrator) fail(runID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	err := o.store.FailReview(ctx, runID, sanitizeError(cause))
	if storage.IsStaleRun(err) {
		fmt.Fprintf(os.Stderr, "review run %s superseded, dropping failure\n", runID)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to mark review run %s as failed: %v\n", runID, err)
	}
}

// Shutdown waits for in-flight runs to finish, bounded by ctx
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out with runs still in flight: %w", ctx.Err())
	}
}

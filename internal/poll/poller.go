// Package poll wraps the repeated status fetch used to follow a review run
// until it reaches a terminal status.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/kurslab/reviewd/internal/types"
)

// FetchFunc returns the current review record for the watched submission,
// nil when no review exists yet
type FetchFunc func(ctx context.Context) (*types.Review, error)

// Config holds poller configuration
type Config struct {
	// Fetch retrieves the current review snapshot (required)
	Fetch FetchFunc
	// Interval between fetches (default: 5s)
	Interval time.Duration
	// OnUpdate is invoked with each successfully fetched snapshot (optional)
	OnUpdate func(*types.Review)
	// OnError is invoked on non-fatal fetch errors (optional). Polling
	// continues with the last good snapshot.
	OnError func(error)
}

// Poller repeatedly fetches a review until it reaches a terminal status.
// Transient fetch errors are reported but do not stop polling; the caller's
// context is the only way to give up early.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	onUpdate func(*types.Review)
	onError  func(error)
}

// New creates a poller
func New(cfg *Config) (*Poller, error) {
	if cfg == nil || cfg.Fetch == nil {
		return nil, fmt.Errorf("fetch function is required")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Poller{
		fetch:    cfg.Fetch,
		interval: interval,
		onUpdate: cfg.OnUpdate,
		onError:  cfg.OnError,
	}, nil
}

// Wait polls until the review is completed or failed, then returns it. The
// first fetch happens immediately, not after one interval. On context
// cancellation Wait returns the last snapshot it saw along with ctx.Err().
func (p *Poller) Wait(ctx context.Context) (*types.Review, error) {
	var last *types.Review

	if review, done := p.poll(ctx, &last); done {
		return review, nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
			if review, done := p.poll(ctx, &last); done {
				return review, nil
			}
		}
	}
}

// poll runs one fetch cycle, updating *last on success
func (p *Poller) poll(ctx context.Context, last **types.Review) (*types.Review, bool) {
	review, err := p.fetch(ctx)
	if err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		return nil, false
	}
	if review == nil {
		return nil, false
	}

	*last = review
	if p.onUpdate != nil {
		p.onUpdate(review)
	}
	return review, review.Status.IsTerminal()
}

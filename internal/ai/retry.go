package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// RetryConfig holds retry configuration for API calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 120s)

	// MaxConcurrentCalls limits concurrent API calls (default: 3, 0 = unlimited)
	MaxConcurrentCalls int

	// RequestsPerMinute rate-limits outbound calls (default: 30, 0 = unlimited)
	RequestsPerMinute int
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         30 * time.Second,
		BackoffMultiplier:  2.0,
		Timeout:            120 * time.Second,
		MaxConcurrentCalls: 3,
		RequestsPerMinute:  30,
	}
}

// retryWithBackoff executes fn with exponential backoff on retriable errors.
// Concurrency and rate limits are applied before the first attempt.
func (g *AnthropicGenerator) retryWithBackoff(ctx context.Context, operation string, fn func(context.Context) error) error {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer g.sem.Release(1)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait for %s: %w", operation, err)
		}
	}

	var lastErr error
	backoff := g.retry.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		timeout := g.retry.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetriableError(err) {
			return err
		}
		if attempt == g.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		fmt.Fprintf(os.Stderr, "AI API %s failed (attempt %d/%d), retrying in %v: %v\n",
			operation, attempt+1, g.retry.MaxRetries+1, backoff, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		case <-time.After(backoff):
		}

		multiplier := g.retry.BackoffMultiplier
		if multiplier <= 1 {
			multiplier = 2.0
		}
		backoff = time.Duration(float64(backoff) * multiplier)
		if g.retry.MaxBackoff > 0 && backoff > g.retry.MaxBackoff {
			backoff = g.retry.MaxBackoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, g.retry.MaxRetries+1, lastErr)
}

// isRetriableError reports whether an API error is worth retrying
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()

	// Rate limits are retriable
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}

	// Server errors are retriable
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}

	// Network errors are retriable
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "network") {
		return true
	}

	// Remaining client errors will not succeed on retry
	return false
}

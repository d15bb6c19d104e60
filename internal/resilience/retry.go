// Package resilience provides reliability patterns — currently bounded
// exponential-backoff retry — shared by the CDN purge client and any other
// outbound call that talks to a flaky remote service.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy configures WithRetry's backoff schedule.
type RetryPolicy struct {
	// MaxRetries is the number of retry attempts after the first try (0 =
	// no retries, 1 attempt total).
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay regardless of how many retries have elapsed.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff growth factor (2.0 doubles the
	// delay each attempt).
	Multiplier float64

	Logger *slog.Logger
}

// CDNPurgePolicy mirrors the purge client's contract: 3 retries,
// starting at 100ms, doubling each attempt.
func CDNPurgePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   10 * time.Second,
		Multiplier: 2.0,
	}
}

// WithRetry runs operation, retrying on error according to policy with
// exponential backoff between attempts. Context cancellation during a
// backoff sleep aborts immediately with ctx.Err().
func WithRetry(ctx context.Context, policy RetryPolicy, operation func(ctx context.Context) error) error {
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}

	delay := policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries {
			break
		}

		logger.Warn("retrying after failure", "attempt", attempt+1, "max_retries", policy.MaxRetries, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", policy.MaxRetries+1, lastErr)
}

// IsContextError reports whether err is a context cancellation/deadline, so
// callers can distinguish "gave up" from "the caller stopped waiting".
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Package retry runs collaborator calls with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxBackoff caps a single wait.
const MaxBackoff = 30 * time.Second

// Backoff returns baseDelay doubled per attempt, capped at MaxBackoff, with
// -25%..+25% jitter. Attempt 0 waits nothing.
func Backoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > MaxBackoff || backoff <= 0 {
		backoff = MaxBackoff
	}
	if half := int64(backoff) / 2; half > 0 {
		backoff += time.Duration(rand.Int64N(half)) - backoff/4
	}
	return backoff
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the context ends,
// or maxRetries retries have been spent.
func Do(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(Backoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}

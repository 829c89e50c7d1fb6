package retryutil

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 3 * time.Second
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to attempts times, sleeping base*attempt between failures.
// It stops early when ctx is canceled or fn returns a Permanent error, and
// returns the last error after the final attempt.
func Do(ctx context.Context, logger *slog.Logger, name string, attempts int, base time.Duration, fn func(ctx context.Context) error) error {
	if fn == nil {
		return nil
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if base <= 0 {
		base = defaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := base * time.Duration(attempt)
		if logger != nil {
			logger.Warn(name+"_retry_wait", "attempt", attempt, "max_attempts", attempts, "delay", delay.String(), "error", err.Error())
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Package retry provides retry logic with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int           // maximum number of attempts
	InitialWait time.Duration // wait before the second attempt
	MaxWait     time.Duration // cap on the backoff
	Multiplier  float64       // backoff multiplier
	Jitter      float64       // jitter factor (0-1)
}

// DefaultConfig returns sensible defaults for object storage operations.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 4,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
	}
}

// RetryableError wraps an error that should be retried.
type RetryableError struct {
	Err error
}

func (e RetryableError) Error() string { return e.Err.Error() }

func (e RetryableError) Unwrap() error { return e.Err }

// Retryable wraps an error to mark it as retryable.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return RetryableError{Err: err}
}

// IsRetryable returns true if the error should be retried.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// Do executes fn, retrying retryable failures with exponential backoff until
// the attempt budget is spent or the context is done.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt-1))
		if wait > float64(cfg.MaxWait) {
			wait = float64(cfg.MaxWait)
		}
		if cfg.Jitter > 0 {
			wait += wait * cfg.Jitter * (rand.Float64()*2 - 1)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(wait)):
		}
	}

	return lastErr
}

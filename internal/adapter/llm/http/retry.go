package http

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryConfig holds the retry policy for one client instance. The
// policy is immutable once the Retrier is constructed.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 30 * time.Second,
		Multiplier:   2.0,
	}
}

// Backoff calculates the wait time before retrying a given attempt:
// InitialDelay * Multiplier^attempt. No jitter is applied; the delay
// sequence is part of the caller-visible contract.
func Backoff(attempt int, config RetryConfig) time.Duration {
	return time.Duration(float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt)))
}

// ShouldRetry determines if an error is transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}

	// Unclassified errors are permanent.
	return false
}

// Operation is a function that can be retried.
type Operation func(ctx context.Context) error

// Retrier executes operations with bounded exponential backoff.
type Retrier struct {
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier constructs a Retrier, normalizing out-of-range policy
// values: at least one attempt, doubling backoff by default.
func NewRetrier(config RetryConfig) *Retrier {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	return &Retrier{config: config, sleep: sleepContext}
}

// Config returns the retry policy.
func (r *Retrier) Config() RetryConfig {
	return r.config
}

// SetSleep overrides the sleep function (for testing).
func (r *Retrier) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	r.sleep = sleep
}

// Do runs the operation until it succeeds, fails permanently, or the
// attempt budget is exhausted. Transient failures sleep
// InitialDelay * Multiplier^attempt between attempts; a transient
// failure on the final attempt returns MaxRetriesError. Permanent
// failures propagate immediately with zero sleeps.
func (r *Retrier) Do(ctx context.Context, operation Operation) error {
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}

		if !ShouldRetry(err) {
			return err
		}

		if attempt == r.config.MaxAttempts-1 {
			return &MaxRetriesError{Attempts: r.config.MaxAttempts, Last: err}
		}

		if sleepErr := r.sleep(ctx, Backoff(attempt, r.config)); sleepErr != nil {
			return sleepErr
		}
	}

	// Unreachable: the loop always returns.
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

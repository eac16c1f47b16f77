package errors

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig contains configuration for retry logic.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration // zero means uncapped
	Multiplier   float64
	Jitter       bool // Add random jitter to delays
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc func(ctx context.Context) error

// RetryAttempt describes a failed attempt that is about to be retried.
type RetryAttempt struct {
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
	Err         error
}

// RetryCallback is notified before each retry wait.
type RetryCallback func(attempt RetryAttempt)

// Retry executes fn until it succeeds, fails with a non-retryable error, or runs out of attempts.
func Retry(ctx context.Context, config RetryConfig, fn RetryFunc) error {
	return RetryWithNotify(ctx, config, fn, nil)
}

// WithRetry runs fn at most maxAttempts times, doubling baseDelay after every failure.
func WithRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn RetryFunc) error {
	return Retry(ctx, RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: baseDelay,
		Multiplier:   2.0,
	}, fn)
}

// RetryWithNotify executes fn with retry logic and notifies before each retry.
// The last error is returned unchanged once attempts are exhausted.
func RetryWithNotify(ctx context.Context, config RetryConfig, fn RetryFunc, notify RetryCallback) error {
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) || attempt == maxAttempts {
			return lastErr
		}

		delay := calculateRetryDelay(config, attempt, lastErr)
		LogRetry(attempt, maxAttempts, lastErr, delay)
		if notify != nil {
			notify(RetryAttempt{Attempt: attempt, MaxAttempts: maxAttempts, Delay: delay, Err: lastErr})
		}

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}

// sleep waits for d or until ctx is done, releasing the timer either way.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateRetryDelay returns the wait after the given 1-based attempt.
func calculateRetryDelay(config RetryConfig, attempt int, err error) time.Duration {
	if retryAfter := GetRetryAfter(err); retryAfter > 0 {
		if config.MaxDelay > 0 && retryAfter > config.MaxDelay {
			return config.MaxDelay
		}
		return retryAfter
	}

	multiplier := config.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(config.InitialDelay) * math.Pow(multiplier, float64(attempt-1))

	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	// +-25%
	if config.Jitter {
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}

	return time.Duration(delay)
}

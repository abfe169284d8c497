package client

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig holds the configuration for the retry executor. Values
// are passed by copy, so overriding a field at one call site never
// affects another.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt, so
	// MaxRetries+1 attempts run in total.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay growth. Jitter is added on
	// top of the cap.
	MaxDelay time.Duration

	// BackoffMultiplier is the per-attempt delay growth factor.
	BackoffMultiplier float64

	// JitterMax bounds the random addition sampled per retry to
	// desynchronize concurrent retriers.
	JitterMax time.Duration

	// Rand is the jitter source. Nil means the process-global
	// generator; tests inject a seeded one.
	Rand *rand.Rand
}

// DefaultRetryConfig returns the default retry configuration. A fresh
// value is constructed per call so there is no shared default to
// mutate.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterMax:         500 * time.Millisecond,
	}
}

// delay returns the capped exponential delay after the given 0-indexed
// attempt, before jitter.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiplier, float64(attempt)))
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// jitter samples a uniform duration from [0, JitterMax).
func (c RetryConfig) jitter() time.Duration {
	if c.JitterMax <= 0 {
		return 0
	}
	f := rand.Float64()
	if c.Rand != nil {
		f = c.Rand.Float64()
	}
	return time.Duration(f * float64(c.JitterMax))
}

// WithRetry runs op up to cfg.MaxRetries+1 times, sleeping between
// attempts per the capped exponential backoff plus jitter. Failures go
// through isRetryable: an explicit non-retryable error aborts
// immediately, and after the final attempt the last error is returned
// unchanged. Sleeps select on ctx, so cancellation surfaces ctx.Err()
// without waiting out the backoff.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, err
		}

		// The final attempt propagates its error instead of sleeping
		// once more.
		if attempt == cfg.MaxRetries {
			break
		}

		timer := time.NewTimer(cfg.delay(attempt) + cfg.jitter())
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

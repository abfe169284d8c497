package client

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig configures the optional circuit breaker wrapped around
// the whole call path, outside the retry loop. A nil BreakerConfig on
// the client Config disables it.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval between failure-counter resets while closed. Zero means
	// counters accumulate until the breaker trips.
	Interval time.Duration

	// Timeout before an open breaker transitions to half-open.
	Timeout time.Duration

	// ConsecutiveFailures of retryable kind that trip the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns a breaker tuned for a rate-limited
// upstream: trip after five consecutive transient failures, probe again
// after 30 seconds.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// newBreaker wires a BreakerConfig into gobreaker. Permanent errors
// (bad requests, application errors) do not count as failures: the
// breaker guards upstream health, not caller mistakes.
func newBreaker(cfg *BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "api-football",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "footstats_ratelimit_remaining",
		Help: "Requests remaining in the current API-Football rate limit window",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "footstats_ratelimit_waits_total",
		Help: "Total number of requests delayed until the rate limit window reset",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "footstats_ratelimit_wait_seconds",
		Help:    "Time spent waiting for rate limit window resets",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// Header alias chains, primary vendor convention first. Lookups go
// through Header.Get, which canonicalizes names, so case variants of the
// same header resolve to the same value.
var (
	remainingHeaders = []string{
		"x-ratelimit-remaining",
		"X-RateLimit-Remaining",
		"x-ratelimit-requests-remaining",
		"x-rapidapi-requests-remaining",
	}

	resetHeaders = []string{
		"x-ratelimit-reset",
		"X-RateLimit-Reset",
		"x-ratelimit-requests-reset",
		"x-rapidapi-requests-reset",
	}

	limitHeaders = []string{
		"x-ratelimit-limit",
		"X-RateLimit-Limit",
		"x-ratelimit-requests-limit",
		"x-rapidapi-requests-limit",
	}
)

// Tracker monitors the API-Football request quota and answers whether an
// outbound request must wait for the window reset. One tracker is shared
// by all requests of a client instance.
type Tracker struct {
	mu     sync.Mutex
	state  State
	logger zerolog.Logger

	now func() time.Time // injectable for tests
}

// NewTracker creates a tracker that assumes a healthy window until the
// first response headers arrive.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		state: State{
			Remaining: DefaultRemaining,
			Limit:     DefaultLimit,
		},
		logger: logger,
		now:    time.Now,
	}
}

// UpdateFromHeaders applies rate limit headers from an API response.
// Each concept (remaining, limit, reset) is updated independently from
// the first alias present; absent or non-numeric values leave the prior
// state untouched. Responses without rate limit headers are a no-op, so
// this is safe to call on every response.
func (t *Tracker) UpdateFromHeaders(headers http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	updated := false

	if v, ok := intHeader(headers, remainingHeaders); ok {
		t.state.Remaining = int(v)
		rateLimitRemaining.Set(float64(v))
		updated = true
	}

	if v, ok := intHeader(headers, limitHeaders); ok {
		t.state.Limit = int(v)
		updated = true
	}

	if v, ok := intHeader(headers, resetHeaders); ok {
		// Headers deliver the reset as Unix seconds.
		t.state.ResetAtMillis = v * 1000
		updated = true
	}

	if !updated {
		return
	}

	t.state.LastUpdate = t.now()

	event := t.logger.Debug()
	if t.state.Remaining <= 0 {
		event = t.logger.Warn()
	}
	event.
		Int("remaining", t.state.Remaining).
		Int("limit", t.state.Limit).
		Int64("reset_at_millis", t.state.ResetAtMillis).
		Msg("Rate limit state updated")
}

// RemainingRequests returns the raw last-seen remaining count. Negative
// values are passed through unclamped for diagnostics.
func (t *Tracker) RemainingRequests() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Remaining
}

// Limit returns the last-seen window ceiling.
func (t *Tracker) Limit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Limit
}

// ShouldWaitForReset reports whether the quota is exhausted and the
// window reset is still in the future.
func (t *Tracker) ShouldWaitForReset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.WaitRequiredAt(t.now())
}

// WaitTime returns how long to wait before the next request may be
// issued, or zero when no wait is required.
func (t *Tracker) WaitTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.WaitTimeAt(t.now())
}

// State returns a copy of the current window state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Wait blocks until the window reset when the quota is exhausted and
// returns immediately otherwise. A cancelled context interrupts the
// wait; the lock is never held while sleeping.
func (t *Tracker) Wait(ctx context.Context) error {
	wait := t.WaitTime()
	if wait <= 0 {
		return nil
	}

	t.logger.Warn().
		Int("remaining", t.RemainingRequests()).
		Dur("wait", wait).
		Msg("Rate limit exhausted, waiting for window reset")

	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// intHeader returns the value of the first alias present in headers.
// A present but non-numeric value reports false so the caller keeps its
// prior state.
func intHeader(headers http.Header, names []string) (int64, bool) {
	for _, name := range names {
		raw := headers.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

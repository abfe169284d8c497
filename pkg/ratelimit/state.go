// Package ratelimit tracks the API-Football request quota from response
// headers and gates outbound requests when the window is exhausted.
// It consumes the x-ratelimit-* and x-rapidapi-* header families sent by
// both the native API and the RapidAPI gateway.
package ratelimit

import (
	"time"
)

// Window values assumed until the first response headers arrive.
// The free API-Football plan grants 100 requests per day.
const (
	DefaultLimit     = 100
	DefaultRemaining = 100
)

// State is a snapshot of the last-seen rate limit window.
type State struct {
	// Remaining is the number of requests left in the current window,
	// exactly as reported. Negative values are preserved unclamped for
	// diagnostics.
	Remaining int `json:"remaining"`

	// Limit is the window ceiling.
	Limit int `json:"limit"`

	// ResetAtMillis is the absolute epoch time, in milliseconds, at
	// which the window resets. Headers deliver this in Unix seconds.
	// Zero means no reset has been observed yet.
	ResetAtMillis int64 `json:"reset_at_millis"`

	// LastUpdate is when headers were last applied to this state.
	LastUpdate time.Time `json:"last_update"`
}

// WaitRequiredAt reports whether the quota is exhausted and the window
// reset is still ahead of now. A reset in the past never requires
// waiting, even with zero requests remaining.
func (s State) WaitRequiredAt(now time.Time) bool {
	return s.Remaining <= 0 && now.UnixMilli() < s.ResetAtMillis
}

// WaitTimeAt returns the time left until the window reset, or zero when
// no wait is required.
func (s State) WaitTimeAt(now time.Time) time.Duration {
	if !s.WaitRequiredAt(now) {
		return 0
	}
	return time.Duration(s.ResetAtMillis-now.UnixMilli()) * time.Millisecond
}

// IsStale reports whether the state is older than maxAge. Stale state
// usually means no request has been issued for a while.
func (s State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

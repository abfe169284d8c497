package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// newTestTracker returns a tracker with a controllable clock. Tests
// advance time through the returned pointer.
func newTestTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()

	tr := NewTracker(zerolog.Nop())
	now := time.Date(2026, 5, 1, 12, 0, 0, 300_000_000, time.UTC)
	clock := &now
	tr.now = func() time.Time { return *clock }
	return tr, clock
}

func TestTracker_FreshConstruction(t *testing.T) {
	tr, _ := newTestTracker(t)

	if tr.ShouldWaitForReset() {
		t.Error("ShouldWaitForReset() = true before any headers, want false")
	}
	if got := tr.WaitTime(); got != 0 {
		t.Errorf("WaitTime() = %v, want 0", got)
	}
	if got := tr.RemainingRequests(); got != DefaultRemaining {
		t.Errorf("RemainingRequests() = %d, want %d", got, DefaultRemaining)
	}
	if got := tr.Limit(); got != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", got, DefaultLimit)
	}
}

func TestTracker_UpdateFromHeaders_RemainingAliases(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"native lowercase", "x-ratelimit-remaining"},
		{"native mixed case", "X-RateLimit-Remaining"},
		{"native requests variant", "x-ratelimit-requests-remaining"},
		{"rapidapi gateway", "x-rapidapi-requests-remaining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker(t)

			headers := http.Header{}
			headers.Set(tt.header, "7")
			tr.UpdateFromHeaders(headers)

			if got := tr.RemainingRequests(); got != 7 {
				t.Errorf("RemainingRequests() = %d, want 7 (header %q)", got, tt.header)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_LimitAliases(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"native lowercase", "x-ratelimit-limit"},
		{"native mixed case", "X-RateLimit-Limit"},
		{"native requests variant", "x-ratelimit-requests-limit"},
		{"rapidapi gateway", "x-rapidapi-requests-limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker(t)

			headers := http.Header{}
			headers.Set(tt.header, "300")
			tr.UpdateFromHeaders(headers)

			if got := tr.Limit(); got != 300 {
				t.Errorf("Limit() = %d, want 300 (header %q)", got, tt.header)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_ResetAliases(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"native lowercase", "x-ratelimit-reset"},
		{"native mixed case", "X-RateLimit-Reset"},
		{"native requests variant", "x-ratelimit-requests-reset"},
		{"rapidapi gateway", "x-rapidapi-requests-reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, _ := newTestTracker(t)

			headers := http.Header{}
			headers.Set(tt.header, "1750000000")
			tr.UpdateFromHeaders(headers)

			if got := tr.State().ResetAtMillis; got != 1750000000_000 {
				t.Errorf("ResetAtMillis = %d, want %d (header %q)", got, int64(1750000000_000), tt.header)
			}
		})
	}
}

func TestTracker_UpdateFromHeaders_FirstAliasWins(t *testing.T) {
	tr, _ := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "5")
	headers.Set("x-rapidapi-requests-remaining", "9")
	tr.UpdateFromHeaders(headers)

	if got := tr.RemainingRequests(); got != 5 {
		t.Errorf("RemainingRequests() = %d, want 5 (primary alias wins)", got)
	}
}

func TestTracker_UpdateFromHeaders_IndependentConcepts(t *testing.T) {
	tr, _ := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "42")
	tr.UpdateFromHeaders(headers)

	if got := tr.Limit(); got != DefaultLimit {
		t.Errorf("Limit() = %d after remaining-only update, want %d", got, DefaultLimit)
	}

	headers = http.Header{}
	headers.Set("x-ratelimit-limit", "500")
	tr.UpdateFromHeaders(headers)

	if got := tr.RemainingRequests(); got != 42 {
		t.Errorf("RemainingRequests() = %d after limit-only update, want 42", got)
	}
	if got := tr.Limit(); got != 500 {
		t.Errorf("Limit() = %d, want 500", got)
	}
}

func TestTracker_UpdateFromHeaders_NonNumericKeepsPrior(t *testing.T) {
	tr, _ := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "10")
	tr.UpdateFromHeaders(headers)

	headers = http.Header{}
	headers.Set("x-ratelimit-remaining", "not-a-number")
	tr.UpdateFromHeaders(headers)

	if got := tr.RemainingRequests(); got != 10 {
		t.Errorf("RemainingRequests() = %d after non-numeric header, want prior value 10", got)
	}
}

func TestTracker_UpdateFromHeaders_NoHeadersIsNoOp(t *testing.T) {
	tr, _ := newTestTracker(t)

	tr.UpdateFromHeaders(http.Header{})

	state := tr.State()
	if state.Remaining != DefaultRemaining || state.Limit != DefaultLimit || state.ResetAtMillis != 0 {
		t.Errorf("State() = %+v after empty headers, want defaults untouched", state)
	}
	if !state.LastUpdate.IsZero() {
		t.Error("LastUpdate set by a no-op header update")
	}
}

func TestTracker_UpdateFromHeaders_NegativeRemaining(t *testing.T) {
	tr, _ := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "-3")
	tr.UpdateFromHeaders(headers)

	if got := tr.RemainingRequests(); got != -3 {
		t.Errorf("RemainingRequests() = %d, want -3 (raw value, never clamped)", got)
	}
}

func TestTracker_ExhaustedWindow(t *testing.T) {
	tr, clock := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "0")
	headers.Set("x-ratelimit-limit", "100")
	headers.Set("x-ratelimit-reset", strconv.FormatInt(clock.Add(30*time.Second).Unix(), 10))
	tr.UpdateFromHeaders(headers)

	if !tr.ShouldWaitForReset() {
		t.Fatal("ShouldWaitForReset() = false for exhausted window with future reset, want true")
	}

	// The reset header carries whole seconds, so the wait lands just
	// under the nominal 30s window.
	wait := tr.WaitTime()
	if wait <= 29*time.Second || wait > 30*time.Second {
		t.Errorf("WaitTime() = %v, want in (29s, 30s]", wait)
	}
}

func TestTracker_ResetInPastNeverWaits(t *testing.T) {
	tr, clock := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "0")
	headers.Set("x-ratelimit-reset", strconv.FormatInt(clock.Add(-10*time.Second).Unix(), 10))
	tr.UpdateFromHeaders(headers)

	if tr.ShouldWaitForReset() {
		t.Error("ShouldWaitForReset() = true with past reset, want false")
	}
	if got := tr.WaitTime(); got != 0 {
		t.Errorf("WaitTime() = %v, want 0", got)
	}
}

func TestTracker_WaitPassesAfterReset(t *testing.T) {
	tr, clock := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "0")
	headers.Set("x-ratelimit-reset", strconv.FormatInt(clock.Add(time.Minute).Unix(), 10))
	tr.UpdateFromHeaders(headers)

	if !tr.ShouldWaitForReset() {
		t.Fatal("ShouldWaitForReset() = false, want true before the reset")
	}

	*clock = clock.Add(2 * time.Minute)

	if tr.ShouldWaitForReset() {
		t.Error("ShouldWaitForReset() = true after the reset passed, want false")
	}
}

func TestTracker_Wait_NoWaitRequired(t *testing.T) {
	tr, _ := newTestTracker(t)

	if err := tr.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v with healthy window, want nil", err)
	}
}

func TestTracker_Wait_CompletesAfterReset(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	tr.state.Remaining = 0
	tr.state.ResetAtMillis = time.Now().Add(50 * time.Millisecond).UnixMilli()

	start := time.Now()
	if err := tr.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() = %v, want nil", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Wait() returned after %v, want to block until the reset", elapsed)
	}
}

func TestTracker_Wait_ContextCancelled(t *testing.T) {
	tr := NewTracker(zerolog.Nop())
	tr.state.Remaining = 0
	tr.state.ResetAtMillis = time.Now().Add(5 * time.Second).UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Wait() = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() blocked %v after cancellation, want prompt return", elapsed)
	}
}

func TestTracker_StateSnapshot(t *testing.T) {
	tr, _ := newTestTracker(t)

	headers := http.Header{}
	headers.Set("x-ratelimit-remaining", "8")
	tr.UpdateFromHeaders(headers)

	snapshot := tr.State()
	snapshot.Remaining = -99

	if got := tr.RemainingRequests(); got != 8 {
		t.Errorf("RemainingRequests() = %d after mutating a snapshot, want 8", got)
	}
}

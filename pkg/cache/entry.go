package cache

import (
	"time"
)

// Entry holds a single cached value together with its expiry and access
// bookkeeping. Entries are owned by the cache that created them and are
// destroyed on explicit delete, on TTL-expiry discovery, or on LRU eviction.
type Entry[V any] struct {
	// Value is the cached payload.
	Value V `json:"value"`

	// CreatedAt is when the entry was stored or last refreshed.
	CreatedAt time.Time `json:"created_at"`

	// TTL is the duration after CreatedAt for which the entry stays fresh.
	// A TTL <= 0 marks the entry as immediately expired.
	TTL time.Duration `json:"ttl"`

	// AccessCount is the number of reads served from this entry.
	AccessCount int64 `json:"access_count"`

	// LastAccessedAt is when the entry was last read or written.
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// IsExpired reports whether the entry is stale now.
func (e *Entry[V]) IsExpired() bool {
	return e.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the entry is stale at the given instant.
// An entry is expired once more than TTL has passed since CreatedAt;
// a non-positive TTL expires immediately.
func (e *Entry[V]) ExpiredAt(t time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return t.Sub(e.CreatedAt) > e.TTL
}

// RemainingAt returns the time left before expiry at the given instant.
// Returns 0 if already expired.
func (e *Entry[V]) RemainingAt(t time.Time) time.Duration {
	remaining := e.TTL - t.Sub(e.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

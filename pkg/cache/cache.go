package cache

import (
	"container/list"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied by New when the corresponding Options field is zero.
const (
	DefaultMaxEntries      = 1000
	DefaultTTL             = 5 * time.Minute
	DefaultCleanupInterval = time.Minute
)

// Options configures a Cache.
type Options struct {
	// Name labels the cache in logs and metrics.
	Name string

	// MaxEntries bounds the number of stored entries. Inserting a new key at
	// the bound evicts the least recently used entry first. Values <= 0 mean
	// DefaultMaxEntries.
	MaxEntries int

	// DefaultTTL applies to Set calls without an explicit TTL.
	// Values <= 0 mean DefaultTTL.
	DefaultTTL time.Duration

	// CleanupInterval is how often the background sweep removes expired
	// entries. Zero means DefaultCleanupInterval; a negative value disables
	// the sweep entirely.
	CleanupInterval time.Duration

	// Logger receives cache events. The zero Logger is silent.
	Logger zerolog.Logger
}

// DefaultOptions returns the options New falls back to, under the given name.
func DefaultOptions(name string) Options {
	return Options{
		Name:            name,
		MaxEntries:      DefaultMaxEntries,
		DefaultTTL:      DefaultTTL,
		CleanupInterval: DefaultCleanupInterval,
	}
}

// Cache is an in-memory TTL store with LRU eviction, safe for concurrent
// use. Recency is updated by both reads and writes; at capacity the least
// recently used entry is evicted. A background sweep reclaims expired
// entries that nobody reads again. Create instances with New and release
// the sweep goroutine with Close.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used

	name       string
	maxEntries int
	defaultTTL time.Duration
	metrics    *tracker
	logger     zerolog.Logger

	now func() time.Time

	stopSweep chan struct{}
	closeOnce sync.Once
}

// item is the payload carried by order's elements.
type item[V any] struct {
	key   string
	entry Entry[V]
}

// New creates a cache from opts and, unless disabled, starts its background
// sweep goroutine.
func New[V any](opts Options) *Cache[V] {
	if opts.Name == "" {
		opts.Name = "default"
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}

	c := &Cache[V]{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		name:       opts.Name,
		maxEntries: opts.MaxEntries,
		defaultTTL: opts.DefaultTTL,
		metrics:    newTracker(opts.Name),
		logger:     opts.Logger.With().Str("component", "cache").Str("cache", opts.Name).Logger(),
		now:        time.Now,
		stopSweep:  make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.sweep(opts.CleanupInterval)
	}

	return c
}

// Name returns the cache's label.
func (c *Cache[V]) Name() string {
	return c.name
}

// Set stores value under key. An optional ttl overrides the cache default;
// a TTL <= 0 stores the entry as already expired. Writing an existing key
// replaces its entry and counts as a use for eviction ordering; writing a
// new key at capacity evicts exactly one least-recently-used entry first.
func (c *Cache[V]) Set(key string, value V, ttl ...time.Duration) {
	d := c.defaultTTL
	if len(ttl) > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.entries[key]; ok {
		el.Value.(*item[V]).entry = Entry[V]{Value: value, CreatedAt: now, TTL: d, LastAccessedAt: now}
		c.order.MoveToFront(el)
		c.metrics.set(false)
		return
	}

	if len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.entries[key] = c.order.PushFront(&item[V]{
		key:   key,
		entry: Entry[V]{Value: value, CreatedAt: now, TTL: d, LastAccessedAt: now},
	})
	c.metrics.set(true)
}

// Get returns the value under key. An expired entry is deleted and reported
// as a miss. On a hit the entry's access statistics are updated and it
// becomes the most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.metrics.miss()
		return zero, false
	}

	it := el.Value.(*item[V])
	now := c.now()
	if it.entry.ExpiredAt(now) {
		c.removeElement(el)
		c.metrics.miss()
		return zero, false
	}

	it.entry.AccessCount++
	it.entry.LastAccessedAt = now
	c.order.MoveToFront(el)
	c.metrics.hit()
	return it.entry.Value, true
}

// Has reports whether key holds a fresh entry. Unlike Get it never mutates
// access statistics, recency order, or the hit/miss counters.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	return !el.Value.(*item[V]).entry.ExpiredAt(c.now())
}

// Peek returns the value under key without updating access statistics,
// recency order, or the hit/miss counters. Expired entries are reported
// absent and left for the sweep.
func (c *Cache[V]) Peek(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	it := el.Value.(*item[V])
	if it.entry.ExpiredAt(c.now()) {
		return zero, false
	}
	return it.entry.Value, true
}

// Delete removes key and reports whether an entry was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear removes every entry, recording a delete for each.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.metrics.delete(int64(n))
}

// Size returns the number of stored entries. Expired entries count until a
// read or the sweep removes them.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// FindKeys returns all keys matching a glob pattern, where '*' matches any
// run of characters and '?' matches exactly one. Used for bulk invalidation
// by key prefix, e.g. FindKeys("fixtures:*"). The result is sorted.
func (c *Cache[V]) FindKeys(pattern string) []string {
	re := compileGlob(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []string
	for key := range c.entries {
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Refresh resets the creation time of key's entry to now, extending its
// freshness without a new fetch. An optional ttl also replaces the entry's
// TTL. Recency order is left untouched. Reports whether the key was present,
// including entries that expired but have not been swept yet.
func (c *Cache[V]) Refresh(key string, ttl ...time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}

	it := el.Value.(*item[V])
	it.entry.CreatedAt = c.now()
	if len(ttl) > 0 {
		it.entry.TTL = ttl[0]
	}
	return true
}

// Stats describes a cache at a point in time.
type Stats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	HitRate float64 `json:"hit_rate"`
	Metrics Metrics `json:"metrics"`
}

// Stats returns a snapshot of the cache's size and counters. HitRate is
// hits/(hits+misses), 0 before any access.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	m := c.metrics.snapshot()
	var hitRate float64
	if total := m.Hits + m.Misses; total > 0 {
		hitRate = float64(m.Hits) / float64(total)
	}

	return Stats{
		Size:    size,
		MaxSize: c.maxEntries,
		HitRate: hitRate,
		Metrics: m,
	}
}

// Close stops the background sweep. Safe to call more than once; the cache
// stays usable afterwards, minus expired-entry reclamation.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopSweep)
	})
	return nil
}

// sweep periodically removes expired entries so memory is reclaimed even for
// keys nobody reads again. Runs until Close.
func (c *Cache[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.removeExpired(); n > 0 {
				c.logger.Debug().Int("removed", n).Msg("Sweep removed expired entries")
			}
		case <-c.stopSweep:
			return
		}
	}
}

// removeExpired deletes every expired entry and returns how many went.
func (c *Cache[V]) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*item[V]).entry.ExpiredAt(now) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// evictLRU removes the least recently used entry. Caller holds c.mu.
func (c *Cache[V]) evictLRU() {
	el := c.order.Back()
	if el == nil {
		return
	}

	it := el.Value.(*item[V])
	c.order.Remove(el)
	delete(c.entries, it.key)
	c.metrics.evict()
	c.logger.Debug().Str("key", it.key).Msg("Evicted least recently used entry")
}

// removeElement unlinks an entry and records a delete. Caller holds c.mu.
func (c *Cache[V]) removeElement(el *list.Element) {
	it := el.Value.(*item[V])
	c.order.Remove(el)
	delete(c.entries, it.key)
	c.metrics.delete(1)
}

// compileGlob translates a glob pattern into an anchored regular expression.
func compileGlob(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

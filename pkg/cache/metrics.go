package cache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations, labeled by cache name.
var (
	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "footstats_cache_operations_total",
			Help: "Total cache operations by cache name and operation",
		},
		[]string{"cache", "operation"}, // operation: "hit", "miss", "set", "delete", "evict"
	)

	cacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "footstats_cache_entries",
			Help: "Current number of cache entries by cache name",
		},
		[]string{"cache"},
	)
)

// Metrics is a point-in-time snapshot of a cache's counters. Every field is
// cumulative except Size, which is the running net entry count (incremented
// on set of a new key, decremented on delete and evict).
type Metrics struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Size      int64 `json:"size"`
}

// tracker accumulates a cache's counters and mirrors them into Prometheus.
// The atomic fields let Stats read without holding the cache lock.
type tracker struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64
	size      atomic.Int64

	opHit    prometheus.Counter
	opMiss   prometheus.Counter
	opSet    prometheus.Counter
	opDelete prometheus.Counter
	opEvict  prometheus.Counter
	entries  prometheus.Gauge
}

func newTracker(name string) *tracker {
	return &tracker{
		opHit:    cacheOperationsTotal.WithLabelValues(name, "hit"),
		opMiss:   cacheOperationsTotal.WithLabelValues(name, "miss"),
		opSet:    cacheOperationsTotal.WithLabelValues(name, "set"),
		opDelete: cacheOperationsTotal.WithLabelValues(name, "delete"),
		opEvict:  cacheOperationsTotal.WithLabelValues(name, "evict"),
		entries:  cacheEntries.WithLabelValues(name),
	}
}

func (t *tracker) hit() {
	t.hits.Add(1)
	t.opHit.Inc()
}

func (t *tracker) miss() {
	t.misses.Add(1)
	t.opMiss.Inc()
}

// set records a write; isNew grows the net size.
func (t *tracker) set(isNew bool) {
	t.sets.Add(1)
	t.opSet.Inc()
	if isNew {
		t.size.Add(1)
		t.entries.Inc()
	}
}

// delete records n removals and shrinks the net size accordingly.
func (t *tracker) delete(n int64) {
	if n <= 0 {
		return
	}
	t.deletes.Add(n)
	t.size.Add(-n)
	t.opDelete.Add(float64(n))
	t.entries.Sub(float64(n))
}

func (t *tracker) evict() {
	t.evictions.Add(1)
	t.size.Add(-1)
	t.opEvict.Inc()
	t.entries.Dec()
}

func (t *tracker) snapshot() Metrics {
	return Metrics{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Sets:      t.sets.Load(),
		Deletes:   t.deletes.Load(),
		Evictions: t.evictions.Load(),
		Size:      t.size.Load(),
	}
}

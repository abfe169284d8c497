// Package cache provides an in-memory TTL cache with LRU eviction for
// football-statistics API responses.
//
// The cache implements the freshness and eviction rules the rest of the
// client relies on:
//
// - TTL expiry relative to entry creation (a TTL <= 0 expires immediately)
// - Strict LRU eviction when a cache reaches its entry bound
// - Lazy expiry on read plus a periodic background sweep
// - Deterministic cache keys ("<dataType>:<16 hex>") with per-entity builders
// - Named policies mapping data types to TTLs and cache sizes
// - Hit/miss/set/delete/evict counters mirrored into Prometheus
//
// # Basic Usage
//
//	// Create a cache sized for the current-season policy
//	c := cache.New[string](cache.Options{
//		Name:       cache.PolicyCurrent.Name,
//		MaxEntries: cache.PolicyCurrent.MaxEntries,
//		DefaultTTL: cache.PolicyCurrent.TTL,
//	})
//	defer c.Close()
//
//	key := cache.StandingsKey(map[string]any{"league": 39, "season": 2025})
//	c.Set(key, payload, cache.PolicyCurrent.TTL)
//
//	if v, ok := c.Get(key); ok {
//		// fresh hit
//		_ = v
//	}
//
// # Policies
//
// ResolvePolicy maps a data type and an optional season to one of five named
// policies: historical (24h), current (5m), live (30s), profiles (1h), and
// search (10m). Seasons strictly before the current calendar year resolve to
// the historical policy for types that have one.
//
// # Invalidation
//
// Keys carry their data type as a prefix, so whole families can be dropped
// with a glob:
//
//	for _, key := range c.FindKeys("fixtures:*") {
//		c.Delete(key)
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - footstats_cache_operations_total{cache, operation} - hits, misses,
//     sets, deletes, evicts by cache name
//   - footstats_cache_entries{cache} - current entry count
//
// Stats returns the same counters in-process, including the hit rate.
package cache

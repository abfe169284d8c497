// Package metrics provides the centralized Prometheus registry reference
// for the footstats client. All metrics are defined in their respective
// packages (client, cache, ratelimit) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the footstats client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - footstats_cache_operations_total{cache, operation} (Counter): Cache
//     operations by cache name; operation is hit, miss, set, delete or evict
//   - footstats_cache_entries{cache} (Gauge): Current entries by cache name
//
// Request Metrics (pkg/client):
//   - footstats_requests_total{endpoint, status} (Counter): Attempts by
//     endpoint and HTTP status ("network_error" when no response arrived)
//   - footstats_request_duration_seconds{endpoint} (Histogram): Call duration
//     by endpoint, including rate limit waits and retries
//   - footstats_retries_total{endpoint} (Counter): Retry attempts by endpoint
//   - footstats_retry_exhausted_total{endpoint} (Counter): Calls that spent
//     their whole retry budget
//
// Rate Limit Metrics (pkg/ratelimit):
//   - footstats_ratelimit_remaining (Gauge): Requests left in the current
//     upstream window
//   - footstats_ratelimit_waits_total (Counter): Calls that slept for a
//     window reset
//   - footstats_ratelimit_wait_seconds (Histogram): Time spent sleeping for
//     window resets
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(footstats_cache_operations_total{operation="hit"}[5m])) /
//   sum(rate(footstats_cache_operations_total{operation=~"hit|miss"}[5m]))
//
//   # Quota Pressure
//   footstats_ratelimit_remaining < 10
//
//   # Retry Pressure
//   rate(footstats_retries_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(footstats_request_duration_seconds_bucket[5m]))
//
//   # Upstream Error Rate
//   sum(rate(footstats_requests_total{status=~"5.."}[5m])) /
//   sum(rate(footstats_requests_total[5m]))

// Package metrics provides the Prometheus registry and scrape handler of the FPL proxy.
// All metrics are defined in their respective packages (cache, upstream, fallback,
// pipeline, server) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape handler for every metric registered with the
// default registry, which is where promauto puts the collectors of every
// package.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - fpl_cache_hits_total (Counter): Reads served from a fresh entry
//   - fpl_cache_misses_total (Counter): Reads without a fresh entry
//   - fpl_cache_populations_total{result} (Counter): Completed populations (success, error, panic)
//   - fpl_cache_coalesced_total (Counter): Callers that awaited an in-flight population
//   - fpl_cache_entries (Gauge): Stored entries
//   - fpl_cache_evictions_total (Counter): Entries dropped by the size bound
//
// Source Metrics (pkg/upstream):
//   - fpl_upstream_requests_total{source, class} (Counter): Attempts by source and outcome class
//   - fpl_upstream_request_duration_seconds{source} (Histogram): Attempt duration by source
//
// Fallback Metrics (pkg/fallback):
//   - fpl_fallback_advances_total{source, class} (Counter): Chain moved past a failed source
//   - fpl_fallback_exhausted_total{family} (Counter): Every source of a chain failed
//
// Pipeline Metrics (pkg/pipeline):
//   - fpl_pipeline_requests_total{family, result} (Counter): Fetches by family and result
//
// HTTP Metrics (internal/server):
//   - fpl_http_requests_total{route, status} (Counter): Served requests by route and status
//   - fpl_http_request_duration_seconds{route} (Histogram): Request duration by route
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fpl_cache_hits_total[5m])) /
//   (sum(rate(fpl_cache_hits_total[5m])) + sum(rate(fpl_cache_misses_total[5m])))
//
//   # Requests served by the static snapshot
//   rate(fpl_upstream_requests_total{source="snapshot", class="success"}[5m])
//
//   # Primary API error rate
//   sum(rate(fpl_upstream_requests_total{source="primary", class!="success"}[5m]))
//
//   # P95 primary latency
//   histogram_quantile(0.95, rate(fpl_upstream_request_duration_seconds_bucket{source="primary"}[5m]))
//
//   # Chains exhausted per family
//   sum by (family) (rate(fpl_fallback_exhausted_total[5m]))

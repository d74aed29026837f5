package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks reads served from a fresh entry
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	// CacheMisses tracks reads that found no fresh entry
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Populations tracks completed populations by result
	Populations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fpl_cache_populations_total",
			Help: "Total number of cache populations by result",
		},
		[]string{"result"}, // "success", "error", "panic"
	)

	// Coalesced tracks callers that joined a population started by another caller
	Coalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_coalesced_total",
			Help: "Total number of callers that awaited an in-flight population",
		},
	)

	// Entries tracks the number of stored entries across stores
	Entries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fpl_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// Evictions tracks entries dropped by the size bound
	Evictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fpl_cache_evictions_total",
			Help: "Total number of entries evicted by the size bound",
		},
	)
)

// Package cache provides the in-memory response cache of the FPL proxy.
//
// The store implements time-bounded caching with single-flight population:
//
// - Fresh entries are served without touching the upstream
// - Concurrent misses for the same key collapse into one population
// - Every waiter receives the outcome of the population it joined
// - Failed populations are not cached; the next call tries again
// - Waiters may give up (context) without cancelling the shared population
// - Optional size bound with least-recently-populated eviction
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	store := cache.NewStore(cache.DefaultConfig(), logger)
//
//	key := resource.NewKey(resource.FamilyBootstrap, nil)
//	policy := cache.Policy{TTL: 10 * time.Minute}
//
//	data, err := store.GetOrPopulate(ctx, key, policy, func(ctx context.Context) ([]byte, error) {
//		return fetchFromUpstream(ctx)
//	})
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - fpl_cache_hits_total - Reads served from a fresh entry
//   - fpl_cache_misses_total - Reads without a fresh entry
//   - fpl_cache_populations_total{result} - Completed populations
//   - fpl_cache_coalesced_total - Callers that joined an in-flight population
//   - fpl_cache_entries - Stored entries
//   - fpl_cache_evictions_total - Entries dropped by the size bound
package cache

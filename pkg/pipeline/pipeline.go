// Package pipeline composes the cache store and the fallback orchestrator
// into the single fetch operation the proxy serves requests with.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/cache"
	"github.com/Sternrassler/fpl-proxy/pkg/fallback"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var pipelineRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpl_pipeline_requests_total",
	Help: "Total number of pipeline fetches by family and result",
}, []string{"family", "result"})

// Route is the cache policy and source chain of one resource family.
type Route struct {
	Policy cache.Policy
	Chain  fallback.Chain
}

// Resolver walks a chain for one descriptor.
type Resolver interface {
	Resolve(ctx context.Context, chain fallback.Chain, d resource.Descriptor) ([]byte, error)
}

// Pipeline serves resources from the cache, populating it from the
// family's source chain on a miss.
type Pipeline struct {
	store    *cache.Store
	resolver Resolver
	routes   map[resource.Family]Route
	logger   zerolog.Logger
}

// New creates a pipeline. Every route must name a known family and carry a
// non-empty chain; a misconfigured route is rejected here rather than at
// request time.
func New(store *cache.Store, resolver Resolver, routes map[resource.Family]Route, logger zerolog.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}

	copied := make(map[resource.Family]Route, len(routes))
	for family, route := range routes {
		if !family.Valid() {
			return nil, fmt.Errorf("route %q: %w", string(family), resource.ErrUnknownFamily)
		}
		if len(route.Chain) == 0 {
			return nil, fmt.Errorf("route %s: %w", family, fallback.ErrEmptyChain)
		}
		if route.Policy.TTL < 0 {
			return nil, fmt.Errorf("route %s: negative ttl %s", family, route.Policy.TTL)
		}
		copied[family] = route
	}

	return &Pipeline{
		store:    store,
		resolver: resolver,
		routes:   copied,
		logger:   logger,
	}, nil
}

// Fetch returns the payload for a family and its path parameters.
//
// Families with a positive TTL go through the cache with single-flight
// population. Families with a zero TTL bypass the cache entirely: every
// call walks the chain. Failures are returned as *Error.
func (p *Pipeline) Fetch(ctx context.Context, family resource.Family, params resource.Params) ([]byte, error) {
	route, ok := p.routes[family]
	if !ok {
		pipelineRequestsTotal.WithLabelValues(string(family), "invalid").Inc()
		return nil, invalidRequest(family, fmt.Errorf("%w: %q", resource.ErrUnknownFamily, string(family)))
	}

	d, err := resource.NewDescriptor(family, params)
	if err != nil {
		pipelineRequestsTotal.WithLabelValues(string(family), "invalid").Inc()
		return nil, invalidRequest(family, err)
	}

	populate := func(ctx context.Context) ([]byte, error) {
		return p.resolver.Resolve(ctx, route.Chain, d)
	}

	var body []byte
	if route.Policy.Cacheable() {
		body, err = p.store.GetOrPopulate(ctx, d.Key, route.Policy, populate)
	} else {
		body, err = populate(ctx)
	}

	if err != nil {
		pe := newError(family, err)
		pipelineRequestsTotal.WithLabelValues(string(family), string(pe.Kind)).Inc()
		return nil, pe
	}

	pipelineRequestsTotal.WithLabelValues(string(family), "ok").Inc()
	return body, nil
}

// Warm populates the cache for parameterless, cached families concurrently.
// With no families given every eligible configured family is warmed.
// Families that take parameters or have a zero TTL are skipped. Every
// family is attempted; the first failure is returned.
func (p *Pipeline) Warm(ctx context.Context, families ...resource.Family) error {
	if len(families) == 0 {
		families = resource.Families()
	}

	var g errgroup.Group
	for _, family := range families {
		route, ok := p.routes[family]
		if !ok || !route.Policy.Cacheable() || len(family.RequiredParams()) > 0 {
			p.logger.Debug().Str("family", string(family)).Msg("Skipping warm-up")
			continue
		}

		family := family
		g.Go(func() error {
			start := time.Now()
			if _, err := p.Fetch(ctx, family, nil); err != nil {
				p.logger.Warn().
					Str("family", string(family)).
					Err(err).
					Msg("Cache warm-up failed")
				return err
			}
			p.logger.Info().
				Str("family", string(family)).
				Dur("duration", time.Since(start)).
				Msg("Cache warmed")
			return nil
		})
	}

	return g.Wait()
}

// Policy returns the cache policy configured for family.
func (p *Pipeline) Policy(family resource.Family) (cache.Policy, bool) {
	route, ok := p.routes[family]
	return route.Policy, ok
}

// DefaultPolicies returns the product cache policies: bootstrap and picks
// for ten minutes, live-event for one minute, everything else uncached.
func DefaultPolicies() map[resource.Family]cache.Policy {
	policies := make(map[resource.Family]cache.Policy)
	for _, family := range resource.Families() {
		policies[family] = cache.Policy{}
	}
	policies[resource.FamilyBootstrap] = cache.Policy{TTL: 10 * time.Minute}
	policies[resource.FamilyPicks] = cache.Policy{TTL: 10 * time.Minute}
	policies[resource.FamilyLiveEvent] = cache.Policy{TTL: time.Minute}
	return policies
}

package config

import (
	"fmt"

	"github.com/Sternrassler/fpl-proxy/pkg/cache"
	"github.com/Sternrassler/fpl-proxy/pkg/fallback"
	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/pipeline"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
)

// Routes resolves every family's chain against sources (keyed by source
// name) and pairs it with the family's cache policy.
func (c Config) Routes(sources map[string]upstream.Source) (map[resource.Family]pipeline.Route, error) {
	routes := make(map[resource.Family]pipeline.Route)

	for _, family := range resource.Families() {
		ttl, names := c.Family(family)

		chainSources := make([]upstream.Source, 0, len(names))
		for _, name := range names {
			src, ok := sources[name]
			if !ok {
				return nil, fmt.Errorf("family %s: source %q is not available", family, name)
			}
			chainSources = append(chainSources, src)
		}

		chain, err := fallback.NewChain(chainSources...)
		if err != nil {
			return nil, fmt.Errorf("family %s: %w", family, err)
		}

		routes[family] = pipeline.Route{
			Policy: cache.Policy{TTL: ttl},
			Chain:  chain,
		}
	}

	return routes, nil
}

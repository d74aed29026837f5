// Package fallback walks an ordered chain of sources for one resource,
// stopping at the first usable payload or at the first authoritative failure.
package fallback

import (
	"context"
	"fmt"

	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for chain walks.
var (
	fallbackAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_fallback_advances_total",
		Help: "Total number of times a chain moved past a failed source, by source and class",
	}, []string{"source", "class"})

	fallbackExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpl_fallback_exhausted_total",
		Help: "Total number of chain walks where every source failed, by family",
	}, []string{"family"})
)

// Chain is an ordered, non-empty list of sources for one resource family.
type Chain []upstream.Source

// NewChain builds a chain, rejecting an empty one.
func NewChain(sources ...upstream.Source) (Chain, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyChain
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("source %d in chain is nil", i)
		}
	}
	return Chain(sources), nil
}

// Names lists the source names in order.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return names
}

// Fetcher performs one classified attempt against a source.
type Fetcher interface {
	Fetch(ctx context.Context, src upstream.Source, d resource.Descriptor) upstream.Outcome
}

// Orchestrator resolves descriptors against chains.
type Orchestrator struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(fetcher Fetcher, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Resolve tries the chain's sources strictly in order.
//
//   - success or rate-limited with a JSON body: the payload is returned, later sources are skipped
//   - server or network error: the next source is tried
//   - client error: returned as *ClientError without trying other sources
//
// When every source fails, *ExhaustedError carries all attempts. A rate-limited
// answer whose body is empty or not JSON carries nothing to serve and is
// treated like a server failure. A done context stops the walk between sources.
func (o *Orchestrator) Resolve(ctx context.Context, chain Chain, d resource.Descriptor) ([]byte, error) {
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}

	attempts := make([]upstream.Outcome, 0, len(chain))

	for i, src := range chain {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", d.Key, err)
		}

		out := o.fetcher.Fetch(ctx, src, d)
		attempts = append(attempts, out)

		switch {
		case out.Terminal():
			if out.Class == upstream.ClassRateLimited {
				o.logger.Info().
					Str("key", d.Key.String()).
					Str("source", out.Source).
					Msg("Upstream throttled, serving rate-limit response body")
			}
			o.logResolved(d, out, i)
			return out.Body, nil

		case out.Class == upstream.ClassClient:
			return nil, &ClientError{Outcome: out}
		}

		// server, network, or an unusable rate-limit answer: try the next source
		if i < len(chain)-1 {
			fallbackAdvancesTotal.WithLabelValues(out.Source, string(out.Class)).Inc()
			o.logger.Warn().
				Str("key", d.Key.String()).
				Str("source", out.Source).
				Str("class", string(out.Class)).
				Str("next", chain[i+1].Name()).
				Msg("Source failed, falling back")
		}
	}

	fallbackExhaustedTotal.WithLabelValues(string(d.Family)).Inc()
	exhausted := &ExhaustedError{Attempts: attempts}
	o.logger.Error().
		Str("key", d.Key.String()).
		Strs("sources", chain.Names()).
		Str("last", exhausted.Last().String()).
		Msg("All sources failed")

	return nil, exhausted
}

func (o *Orchestrator) logResolved(d resource.Descriptor, out upstream.Outcome, index int) {
	if index == 0 {
		return
	}
	event := o.logger.Info()
	if out.Source == upstream.SourceSnapshot {
		event = o.logger.Warn()
	}
	event.
		Str("key", d.Key.String()).
		Str("source", out.Source).
		Int("attempt", index+1).
		Msg("Resolved from fallback source")
}

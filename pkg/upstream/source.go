package upstream

import (
	"context"
	"time"

	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/rs/zerolog"
)

// Source names used in configuration and metrics.
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
	SourceSnapshot  = "snapshot"
)

// DefaultTimeout bounds a single attempt when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Source is one origin a resource can be obtained from.
// RoundTrip performs exactly one attempt and must honour ctx cancellation.
type Source interface {
	Name() string
	RoundTrip(ctx context.Context, d resource.Descriptor) TransportResult
}

// Fetcher runs single, bounded attempts against sources and classifies them.
// It never retries and never caches.
type Fetcher struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher. A non-positive timeout selects DefaultTimeout.
func NewFetcher(timeout time.Duration, logger zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		timeout: timeout,
		logger:  logger,
	}
}

// Fetch performs one attempt against src and returns the classified outcome.
func (f *Fetcher) Fetch(ctx context.Context, src Source, d resource.Descriptor) Outcome {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	res := src.RoundTrip(ctx, d)
	elapsed := time.Since(start)

	// A source that returned a status after the deadline still timed out.
	if res.Err == nil && ctx.Err() != nil {
		res = TransportResult{Err: ctx.Err()}
	}

	out := Classify(res)
	out.Source = src.Name()

	upstreamRequestDuration.WithLabelValues(out.Source).Observe(elapsed.Seconds())
	upstreamRequestsTotal.WithLabelValues(out.Source, string(out.Class)).Inc()

	event := f.logger.Debug()
	if out.Retryable() || out.Class == ClassClient {
		event = f.logger.Warn()
	}
	event.
		Str("source", out.Source).
		Str("key", d.Key.String()).
		Str("class", string(out.Class)).
		Int("status", out.StatusCode).
		Dur("duration", elapsed).
		Err(out.Err).
		Msg("Source attempt finished")

	return out
}

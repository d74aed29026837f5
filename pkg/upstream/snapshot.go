package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/fpl-proxy/pkg/resource"
	"github.com/Sternrassler/fpl-proxy/pkg/snapshot"
)

// SnapshotSource serves static snapshots as the last resort of a chain.
type SnapshotSource struct {
	store snapshot.Store
}

// NewSnapshotSource creates a source backed by a snapshot store.
func NewSnapshotSource(store snapshot.Store) *SnapshotSource {
	return &SnapshotSource{store: store}
}

// Name implements Source.
func (s *SnapshotSource) Name() string {
	return SourceSnapshot
}

// RoundTrip reads the snapshot for the descriptor's family.
// A missing snapshot is a failed read, never a client error.
func (s *SnapshotSource) RoundTrip(ctx context.Context, d resource.Descriptor) TransportResult {
	name, ok := resource.SnapshotName(d)
	if !ok {
		return TransportResult{Err: fmt.Errorf("%w: %s by %s", ErrNotServed, d.Family, SourceSnapshot)}
	}

	data, err := s.store.Load(ctx, name)
	if err != nil {
		return TransportResult{Err: fmt.Errorf("load snapshot %q: %w", name, err)}
	}
	if !json.Valid(data) {
		return TransportResult{Err: fmt.Errorf("%w: snapshot %q", ErrMalformedBody, name)}
	}

	return TransportResult{
		StatusCode: 200,
		Body:       data,
	}
}

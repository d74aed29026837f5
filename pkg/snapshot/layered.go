package snapshot

import (
	"context"
	"errors"
	"fmt"
)

// Layered asks its stores in order and returns the first snapshot found.
type Layered struct {
	stores []Store
}

// NewLayered creates a store over stores, highest priority first.
func NewLayered(stores ...Store) *Layered {
	return &Layered{stores: stores}
}

// Load implements Store. A layer that fails for any reason other than a
// missing snapshot is skipped; its error is reported only when no later
// layer has the snapshot either.
func (l *Layered) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	var firstErr error
	for _, store := range l.stores {
		data, err := store.Load(ctx, name)
		if err == nil {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if firstErr == nil && !errors.Is(err, ErrNotFound) {
			firstErr = err
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

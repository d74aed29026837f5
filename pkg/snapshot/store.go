// Package snapshot provides read access to static JSON snapshots of FPL
// resources, used as the last source of a fallback chain when every remote
// source is down.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound indicates no snapshot exists under the requested name
	ErrNotFound = errors.New("snapshot not found")

	// ErrInvalidName indicates a snapshot name outside [a-z0-9-]
	ErrInvalidName = errors.New("invalid snapshot name")
)

var validName = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Store loads snapshots by name (e.g. "bootstrap-static").
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

package snapshot

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// FSStore reads snapshots from <name>.json in a file system.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore creates a store over fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// Builtin returns the store of the snapshots compiled into the binary:
// bootstrap-static, fixtures and live-event at the start of the season.
func Builtin() *FSStore {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("snapshot: builtin snapshots: %v", err))
	}
	return NewFSStore(sub)
}

// Load implements Store.
func (s *FSStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(s.fsys, name+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

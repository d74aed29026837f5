package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore reads snapshots from <dir>/<name>.json.
type DirStore struct {
	dir string
}

// NewDirStore creates a store rooted at dir. The directory is not required to
// exist yet; a missing directory behaves like an empty one.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Load implements Store.
func (s *DirStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Ping reports whether the snapshot directory is usable. A missing
// directory is fine; a path that exists but is not a readable directory is
// not.
func (s *DirStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat snapshot dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("snapshot path %s is not a directory", s.dir)
	}
	return nil
}

package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirStore_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fixtures.json"), []byte(`[{"id":1}]`), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	store := NewDirStore(dir)
	ctx := context.Background()

	data, err := store.Load(ctx, "fixtures")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != `[{"id":1}]` {
		t.Errorf("Load() = %s, want fixtures payload", data)
	}

	if _, err := store.Load(ctx, "bootstrap-static"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDirStore_RejectsInvalidNames(t *testing.T) {
	store := NewDirStore(t.TempDir())

	tests := []string{"", "../etc/passwd", "Fixtures", "a/b", "-leading"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Load(context.Background(), name); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Load(%q) error = %v, want ErrInvalidName", name, err)
			}
		})
	}
}

func TestDirStore_CancelledContext(t *testing.T) {
	store := NewDirStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Load(ctx, "fixtures"); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestDirStore_Ping(t *testing.T) {
	dir := t.TempDir()
	if err := NewDirStore(dir).Ping(context.Background()); err != nil {
		t.Errorf("Ping(existing dir) = %v, want nil", err)
	}
	if err := NewDirStore(filepath.Join(dir, "missing")).Ping(context.Background()); err != nil {
		t.Errorf("Ping(missing dir) = %v, want nil", err)
	}

	file := filepath.Join(dir, "fixtures.json")
	if err := os.WriteFile(file, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := NewDirStore(file).Ping(context.Background()); err == nil {
		t.Error("Ping(file) should fail")
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

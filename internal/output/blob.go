package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is the destination for generated artifacts.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Location describes where key ends up, for logs and notifications.
	Location(key string) string
}

// LocalStore writes artifacts below a root directory.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a LocalStore rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) error {
	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: artifact is meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Location(key string) string {
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore reads materials from a directory; used for development and tests.
type LocalStore struct {
	root string
}

// NewLocalStore roots the store at dir, which must exist.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("local storage root must be provided")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat local storage root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local storage root %q is not a directory", dir)
	}
	return &LocalStore{root: dir}, nil
}

// Open returns the file at path; paths cannot escape the root.
func (l *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := filepath.Join(l.root, filepath.Clean("/"+path))
	file, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("local object %q: %w", path, ErrObjectNotFound)
		}
		return nil, err
	}
	return file, nil
}

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rogpeppe/go-internal/lockedfile"
)

// FS is a file-system based Store. Each key maps to a file under root.
type FS struct {
	root string
}

// osMkdirAll is the type of os.MkdirAll.
type osMkdirAll func(path string, perm fs.FileMode) error

// NewFS returns a filesystem store rooted at root, creating it if needed.
func NewFS(root string) (*FS, error) {
	return newFS(root, os.MkdirAll)
}

// newFS is like NewFS with a customizable mkdir for tests.
func newFS(root string, mkdir osMkdirAll) (*FS, error) {
	if err := mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root %s: %w", root, err)
	}
	return &FS{root: root}, nil
}

// Driver returns DriverFilesystem.
func (s *FS) Driver() Driver { return DriverFilesystem }

// Close is a no-op.
func (s *FS) Close() error { return nil }

// Path returns the file backing key.
func (s *FS) Path(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, k), nil
}

// Get returns the contents of the file for key.
func (s *FS) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := lockedfile.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", path, err)
	}
	return data, nil
}

// Put writes value to the file for key under an exclusive lock.
func (s *FS) Put(_ context.Context, key string, value []byte) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: create dir for %s: %w", key, err)
	}
	if err := lockedfile.Write(path, bytes.NewReader(value), 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", path, err)
	}
	return nil
}

// Delete removes the file for key.
func (s *FS) Delete(_ context.Context, key string) (bool, error) {
	path, err := s.Path(key)
	if err != nil {
		return false, err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: remove %s: %w", path, err)
	}
	return true, nil
}

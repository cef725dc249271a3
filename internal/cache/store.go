package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Driver identifies a concrete cache backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default)
	DriverMemory     Driver = "memory" // in-memory (tests)
	DriverSQLite     Driver = "sqlite" // single-file SQLite database
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("cache: no such key")

// Store is a minimal key/value store for cached artifacts.
type Store interface {
	// Get returns the value for key, or an error matching ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Returns (false, nil) if it was not present.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver returns the backend identifier.
	Driver() Driver
	// Close releases backend resources.
	Close() error
}

// sanitizeKey ensures key doesn't escape the store root and forbids path
// traversal and absolute paths.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("cache: empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("cache: invalid key %q contains '..'", key)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("cache: invalid absolute key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

// Package cache provides the key/value store that holds the empirical delay
// distribution between runs.
//
// Store is the interface; Open selects a driver from config.Cache:
//   - fs (default): one file per key under a root directory, read and written
//     through lockedfile so concurrent runs do not interleave writes
//   - memory: process-local map, for tests
//   - sqlite: a single kv table in a pure-Go SQLite database
//   - s3: one object per key under a bucket prefix (AWS S3 or MinIO)
//
// Get returns ErrNotFound for absent keys. Put overwrites. Invalidation is
// explicit: callers Delete the key.
package cache

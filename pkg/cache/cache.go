// Package cache stores build results and knowledge lookups between runs.
//
// All backends implement [Cache]: a byte-oriented key/value store with
// per-entry TTLs. [FileCache] backs the CLI, [RedisCache] a shared
// deployment, and [NullCache] disables caching. Keys are produced by a
// [Keyer] so that every backend sees the same namespace layout.
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store for serialized results.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default entry lifetimes.
const (
	TTLBuild     = 24 * time.Hour
	TTLKnowledge = 7 * 24 * time.Hour
	TTLRender    = 24 * time.Hour
)

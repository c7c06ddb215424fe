// Package cache defines the key-value store capability the catalog uses
// for derived listing and detail renderings, and its Redis implementation.
// The store is always injected at construction time so tests can swap in
// a double.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Store is a process-external key-value cache. Delete is idempotent:
// deleting absent keys is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

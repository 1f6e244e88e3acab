// Package storage defines the persistent key-value capability the cache
// and analytics stores are written against, with interchangeable backends.
// Absence is not an error: Get reports it through the found flag.
package storage

import "context"

// KV is a persistent string-to-string store. Every operation may fail;
// callers that must not propagate failures (the cache store, the
// analytics tracker) catch and degrade instead.
type KV interface {
	// Get returns the value for key, or found=false when absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	// Keys lists every key in the store.
	Keys(ctx context.Context) ([]string, error)
	// RemoveMany deletes the given keys in one batch.
	RemoveMany(ctx context.Context, keys []string) error
}

// Package kv is the key-value store adapter every detective component
// persists through: raw string stores, a JSON adapter that degrades to
// defaults, and a write-coalescing batcher.
package kv

import "context"

// Store is a string-keyed persistent store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys lists stored keys starting with prefix in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

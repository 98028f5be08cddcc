// Package store abstracts the key-value persistence used for the serialized
// parse artifacts. Any backend able to hold a JSON blob per fixed logical
// name suffices; Redis and the local filesystem are provided.
package store

import "context"

// Store persists JSON-encodable values under fixed logical keys.
type Store interface {
	// Get unmarshals the value stored under key into dest. Returns
	// errors.ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set marshals value and stores it under key, replacing any previous
	// value.
	Set(ctx context.Context, key string, value interface{}) error
	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error
}

package shared

import (
	"context"
	"time"
)

// Cache stores short lived values under string keys
type Cache interface {
	// Get loads the value stored under key into dest.
	// Returns false when the key is missing or expired.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes the given keys, ignoring missing ones
	Delete(ctx context.Context, keys ...string) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes every key owned by the cache
	Clear(ctx context.Context) error

	// Close releases the resources held by the cache
	Close() error
}

// Package cache provides the key-value store abstraction backing token
// revocation and short-lived login tickets, with Redis and in-memory
// implementations.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a minimal TTL'd key-value store. All implementations must be safe
// for concurrent use; correctness of cross-instance revocation depends on all
// replicas sharing one backing store.
type Store interface {
	// Set stores value under key with the given TTL. ttl must be positive.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetMany stores every key with the same value and TTL in one round trip.
	SetMany(ctx context.Context, keys []string, value string, ttl time.Duration) error
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Exists reports whether key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the store's resources.
	Close() error
}

// Package kv defines the key-value store contract shared by all storage
// backends. Values are plain strings; expiry is per key and enforced by the
// backend.
package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key does not exist or has expired
	ErrNotFound = errors.New("key not found")
)

// Store defines the interface for string key-value persistence with per-key
// expiry. Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A ttl greater than zero expires the key
	// after that duration; a ttl of zero or less stores it without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

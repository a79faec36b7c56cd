// Package cache defines the byte-level store behind the GraphQL result cache
// and its in-process implementation. Shared backends live in subpackages.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a key/value store with optional per-entry expiry.
// A ttl of zero means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Reset(ctx context.Context) error
}

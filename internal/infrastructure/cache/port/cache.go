package port

import (
	"context"
	"errors"
	"time"
)

// Cache is a string key/value store with per-entry TTLs. The user directory
// keeps encoded profiles in it; values are opaque to the cache.
type Cache interface {
	// Get returns ErrMiss when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value; a ttl <= 0 never expires.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Del reports how many of keys existed.
	Del(ctx context.Context, keys ...string) (int64, error)
}

var ErrMiss = errors.New("cache: miss")

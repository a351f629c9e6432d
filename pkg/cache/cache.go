package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a minimal key/value abstraction with TTL support.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// GetDel atomically fetches and removes a key. Returns ErrCacheMiss if
	// the key does not exist.
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

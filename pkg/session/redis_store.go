package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nutriiq/pkg/cache"
)

const sessionPrefix = "session:"

// RedisStore implements Store on a shared cache so sessions survive process
// restarts and are visible across instances.
type RedisStore struct {
	cache cache.Cache
}

func NewRedisStore(c cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}
	return s.cache.Set(ctx, sessionPrefix+rec.Token, string(data), ttl)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Record, error) {
	data, err := s.cache.Get(ctx, sessionPrefix+token)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, err
	}

	// The cache TTL normally evicts first; this covers clock skew between
	// the stored expiry and the cache server. The record is consumed in one
	// step so concurrent readers of an expired token all observe the same
	// removal.
	if time.Now().After(rec.ExpiresAt) {
		if _, err := s.cache.GetDel(ctx, sessionPrefix+token); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.cache.Del(ctx, sessionPrefix+token)
}

// Sweep is a no-op for Redis: keys carry their own TTL.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nutriiq/pkg/cache"
)

const attemptPrefix = "oauth:attempt:"

// RedisAttemptStorage implements AttemptStorage on a shared cache so multiple
// instances can complete a callback that a different instance initiated.
// Consume atomicity comes from GETDEL; expiry is enforced by the cache TTL
// with a belt-and-braces check against the serialized record.
type RedisAttemptStorage struct {
	cache cache.Cache
}

func NewRedisAttemptStorage(c cache.Cache) *RedisAttemptStorage {
	return &RedisAttemptStorage{cache: c}
}

func (s *RedisAttemptStorage) SaveAttempt(ctx context.Context, attempt *Attempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}
	ttl := time.Until(attempt.ExpiresAt)
	if ttl <= 0 {
		return ErrAttemptExpired
	}
	return s.cache.Set(ctx, attemptPrefix+attempt.State, string(data), ttl)
}

func (s *RedisAttemptStorage) ConsumeAttempt(ctx context.Context, state string) (*Attempt, error) {
	data, err := s.cache.GetDel(ctx, attemptPrefix+state)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	var attempt Attempt
	if err := json.Unmarshal([]byte(data), &attempt); err != nil {
		return nil, err
	}

	if time.Now().After(attempt.ExpiresAt) {
		return nil, ErrAttemptExpired
	}

	return &attempt, nil
}

// Sweep is a no-op for Redis: keys carry their own TTL and are evicted by
// the server.
func (s *RedisAttemptStorage) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

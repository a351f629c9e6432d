package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriiq/pkg/cache"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, NewRedisStore(cache.NewRedisCache(mr.Addr(), ""))
}

func TestRedisStore_PutAndGet(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("tok-1", KindUserIdentity, time.Hour)))

	rec, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, KindUserIdentity, rec.Kind)
	assert.JSONEq(t, `{"k":"v"}`, string(rec.Payload))
}

func TestRedisStore_PutAlreadyExpired(t *testing.T) {
	_, store := setupRedisStore(t)

	err := store.Put(context.Background(), newRecord("stale", KindAPIKey, -time.Second))
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRedisStore_TTLEviction(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("tok-1", KindAPIKey, time.Minute)))

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_GetConsumesSkewedExpiredRecord(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	// A record whose stored expiry already passed while the cache TTL has
	// not, as happens when the cache server clock lags.
	rec := Record{
		Token:     "skewed",
		Kind:      KindAPIKey,
		CreatedAt: time.Now().Add(-5 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, mr.Set("session:skewed", string(data)))
	mr.SetTTL("session:skewed", time.Hour)

	_, err = store.Get(ctx, "skewed")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.False(t, mr.Exists("session:skewed"), "the expired record must be consumed")
}

func TestRedisStore_Delete(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("tok-1", KindAPIKey, time.Hour)))
	require.NoError(t, store.Delete(ctx, "tok-1"))

	_, err := store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

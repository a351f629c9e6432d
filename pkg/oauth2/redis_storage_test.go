package oauth2

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriiq/pkg/cache"
)

func setupRedisAttempts(t *testing.T) (*miniredis.Miniredis, *RedisAttemptStorage) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return mr, NewRedisAttemptStorage(cache.NewRedisCache(mr.Addr(), ""))
}

func TestRedisAttemptStorage_SaveAndConsume(t *testing.T) {
	_, storage := setupRedisAttempts(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("state-1", 5*time.Minute)))

	attempt, err := storage.ConsumeAttempt(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "fitbit", attempt.Provider)
	assert.Equal(t, "verifier-123", attempt.CodeVerifier)
}

func TestRedisAttemptStorage_ConsumeIsOneShot(t *testing.T) {
	_, storage := setupRedisAttempts(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("state-1", 5*time.Minute)))

	_, err := storage.ConsumeAttempt(ctx, "state-1")
	require.NoError(t, err)

	_, err = storage.ConsumeAttempt(ctx, "state-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestRedisAttemptStorage_SaveAlreadyExpired(t *testing.T) {
	_, storage := setupRedisAttempts(t)

	err := storage.SaveAttempt(context.Background(), newAttempt("stale", -time.Second))
	assert.ErrorIs(t, err, ErrAttemptExpired)
}

func TestRedisAttemptStorage_TTLEviction(t *testing.T) {
	mr, storage := setupRedisAttempts(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("state-1", time.Minute)))

	mr.FastForward(2 * time.Minute)

	_, err := storage.ConsumeAttempt(ctx, "state-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

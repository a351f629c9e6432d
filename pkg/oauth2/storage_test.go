package oauth2

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttempt(state string, ttl time.Duration) *Attempt {
	now := time.Now()
	return &Attempt{
		State:        state,
		Provider:     "fitbit",
		CodeVerifier: "verifier-123",
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestInMemoryAttemptStorage_SaveAndConsume(t *testing.T) {
	storage := NewInMemoryAttemptStorage()
	ctx := context.Background()

	saved := newAttempt("state-1", 5*time.Minute)
	saved.Extra = map[string]string{"tz_offset": "-300"}
	require.NoError(t, storage.SaveAttempt(ctx, saved))

	attempt, err := storage.ConsumeAttempt(ctx, "state-1")
	require.NoError(t, err)
	assert.Equal(t, "fitbit", attempt.Provider)
	assert.Equal(t, "verifier-123", attempt.CodeVerifier)
	assert.Equal(t, "-300", attempt.Extra["tz_offset"])
}

func TestInMemoryAttemptStorage_ConsumeIsOneShot(t *testing.T) {
	storage := NewInMemoryAttemptStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("state-1", 5*time.Minute)))

	_, err := storage.ConsumeAttempt(ctx, "state-1")
	require.NoError(t, err)

	// Replaying the same state must fail
	_, err = storage.ConsumeAttempt(ctx, "state-1")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestInMemoryAttemptStorage_ConsumeUnknown(t *testing.T) {
	storage := NewInMemoryAttemptStorage()

	_, err := storage.ConsumeAttempt(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestInMemoryAttemptStorage_ConsumeExpired(t *testing.T) {
	storage := NewInMemoryAttemptStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("stale", -time.Second)))

	_, err := storage.ConsumeAttempt(ctx, "stale")
	assert.ErrorIs(t, err, ErrAttemptExpired)

	// The expired record is gone, not just rejected
	_, err = storage.ConsumeAttempt(ctx, "stale")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestInMemoryAttemptStorage_ConcurrentConsume(t *testing.T) {
	storage := NewInMemoryAttemptStorage()
	ctx := context.Background()

	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("contested", 5*time.Minute)))

	var wg sync.WaitGroup
	successes := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := storage.ConsumeAttempt(ctx, "contested"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "exactly one consumer may win")
}

func TestInMemoryAttemptStorage_Sweep(t *testing.T) {
	storage := NewInMemoryAttemptStorage()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, storage.SaveAttempt(ctx, newAttempt(fmt.Sprintf("stale-%d", i), -time.Minute)))
	}
	require.NoError(t, storage.SaveAttempt(ctx, newAttempt("fresh", 5*time.Minute)))

	removed, err := storage.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	_, err = storage.ConsumeAttempt(ctx, "fresh")
	assert.NoError(t, err)
}

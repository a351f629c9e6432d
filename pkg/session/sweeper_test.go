package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriiq/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

func TestSweeper_SweepNow(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("stale-1", KindAPIKey, -time.Minute)))
	require.NoError(t, store.Put(ctx, newRecord("stale-2", KindAPIKey, -time.Minute)))
	require.NoError(t, store.Put(ctx, newRecord("fresh", KindAPIKey, time.Hour)))

	sweeper := NewSweeper(time.Hour, testLogger(), store)
	removed := sweeper.SweepNow(ctx, time.Now())
	assert.Equal(t, 2, removed)

	_, err := store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestSweeper_MultipleTargets(t *testing.T) {
	first := NewInMemoryStore()
	second := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, first.Put(ctx, newRecord("stale-1", KindAPIKey, -time.Minute)))
	require.NoError(t, second.Put(ctx, newRecord("stale-2", KindAPIKey, -time.Minute)))

	sweeper := NewSweeper(time.Hour, testLogger(), first, second)
	assert.Equal(t, 2, sweeper.SweepNow(ctx, time.Now()))
}

func TestSweeper_Background(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("stale", KindAPIKey, -time.Minute)))

	sweeper := NewSweeper(10*time.Millisecond, testLogger(), store)
	sweeper.Start()
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sessions) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	sweeper := NewSweeper(time.Hour, testLogger(), NewInMemoryStore())
	sweeper.Start()
	sweeper.Stop()
	sweeper.Stop()
}

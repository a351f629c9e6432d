package session

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(token string, kind Kind, ttl time.Duration) *Record {
	now := time.Now()
	return &Record{
		Token:     token,
		Kind:      kind,
		Provider:  "fitbit",
		Payload:   json.RawMessage(`{"k":"v"}`),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestInMemoryStore_PutAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("tok-1", KindProviderCredential, time.Hour)))

	rec, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, KindProviderCredential, rec.Kind)
	assert.Equal(t, "fitbit", rec.Provider)
	assert.JSONEq(t, `{"k":"v"}`, string(rec.Payload))
}

func TestInMemoryStore_GetUnknown(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInMemoryStore_GetExpired(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("stale", KindAPIKey, -time.Second)))

	_, err := store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrSessionExpired)

	// The first expired read deletes the record
	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newRecord("tok-1", KindAPIKey, time.Hour)))
	require.NoError(t, store.Delete(ctx, "tok-1"))

	_, err := store.Get(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Deleting again is not an error
	assert.NoError(t, store.Delete(ctx, "tok-1"))
}

func TestInMemoryStore_Sweep(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Put(ctx, newRecord(fmt.Sprintf("stale-%d", i), KindAPIKey, -time.Minute)))
	}
	require.NoError(t, store.Put(ctx, newRecord("fresh", KindAPIKey, time.Hour)))

	removed, err := store.Sweep(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

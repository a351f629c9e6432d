package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Kind classifies what a session record carries.
type Kind string

const (
	// KindAPIKey carries a raw downstream AI-service key.
	KindAPIKey Kind = "api-key"
	// KindProviderCredential carries an OAuth token bundle for one provider.
	KindProviderCredential Kind = "provider-credential"
	// KindUserIdentity carries an internal user id plus denormalized profile.
	KindUserIdentity Kind = "user-identity"
)

// Record is one authenticated session. The token is the only value ever
// exposed to a client; it is generated, never derived from user input.
// Expiry is absolute from CreatedAt; access does not slide it.
type Record struct {
	Token     string          `json:"token"`
	Kind      Kind            `json:"kind"`
	Provider  string          `json:"provider,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store is the injectable session table. Get must atomically
// check-and-delete on expiry so a caller never observes a stale record.
type Store interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, token string) (*Record, error)
	Delete(ctx context.Context, token string) error
	// Sweep removes records expired as of now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// InMemoryStore implements Store with a mutex-guarded map. Suitable for a
// single process; multi-instance deployments use the Redis store.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Record)}
}

func (s *InMemoryStore) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.Token] = rec
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, token string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(rec.ExpiresAt) {
		delete(s.sessions, token)
		return nil, ErrSessionExpired
	}

	return rec, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *InMemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, rec := range s.sessions {
		if now.After(rec.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

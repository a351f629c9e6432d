package oauth2

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrAttemptExpired  = errors.New("attempt expired")
)

// Attempt is a short-lived record of an in-flight OAuth flow, keyed by its
// CSRF state. It exists from the moment an authorization URL is handed out
// until the matching callback consumes it or the sweeper reaps it.
type Attempt struct {
	State        string            `json:"state"`
	Provider     string            `json:"provider"`
	CodeVerifier string            `json:"code_verifier,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// AttemptStorage holds in-flight attempts. ConsumeAttempt is the single
// atomic step of the callback path: existence check, expiry check, and
// deletion happen as one operation so two concurrent callbacks replaying the
// same state can never both succeed.
type AttemptStorage interface {
	SaveAttempt(ctx context.Context, attempt *Attempt) error
	// ConsumeAttempt removes and returns the attempt for state. Returns
	// ErrAttemptNotFound when no record exists, ErrAttemptExpired when a
	// record existed but was past its TTL (the record is deleted either way).
	ConsumeAttempt(ctx context.Context, state string) (*Attempt, error)
	// Sweep removes attempts expired as of now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// InMemoryAttemptStorage implements AttemptStorage with a mutex-guarded map.
type InMemoryAttemptStorage struct {
	mu   sync.Mutex
	data map[string]*Attempt
}

func NewInMemoryAttemptStorage() *InMemoryAttemptStorage {
	return &InMemoryAttemptStorage{data: make(map[string]*Attempt)}
}

func (s *InMemoryAttemptStorage) SaveAttempt(ctx context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[attempt.State] = attempt
	return nil
}

func (s *InMemoryAttemptStorage) ConsumeAttempt(ctx context.Context, state string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attempt, exists := s.data[state]
	if !exists {
		return nil, ErrAttemptNotFound
	}

	// Deleted even when expired: a stale state must not stay consumable.
	delete(s.data, state)

	if time.Now().After(attempt.ExpiresAt) {
		return nil, ErrAttemptExpired
	}

	return attempt, nil
}

func (s *InMemoryAttemptStorage) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for state, attempt := range s.data {
		if now.After(attempt.ExpiresAt) {
			delete(s.data, state)
			removed++
		}
	}
	return removed, nil
}

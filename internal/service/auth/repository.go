package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// User is an application account. An account can be reached through several
// provider identities but a verified email always maps to at most one user.
type User struct {
	ID                string
	Email             string
	EmailVerified     bool
	VerificationToken string
	Name              string
	Picture           string
	PasswordHash      string
	CreatedAt         time.Time
}

// Identity links a provider subject to a user.
type Identity struct {
	Provider  string
	SubjectID string
	UserID    string
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	LinkIdentity(ctx context.Context, identity *Identity) error
	GetUserByIdentity(ctx context.Context, provider, subjectID string) (*User, error)
	// VerifyUser redeems a verification token: marks the matching account
	// verified, clears the token, and returns the account.
	VerifyUser(ctx context.Context, token string) (*User, error)
}

// InMemoryUserRepository backs development and tests.
type InMemoryUserRepository struct {
	mu            sync.RWMutex
	users         map[string]*User
	byEmail       map[string]string
	byVerifyToken map[string]string
	identities    map[string]string // provider + "\x00" + subject -> user id
}

func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		users:         make(map[string]*User),
		byEmail:       make(map[string]string),
		byVerifyToken: make(map[string]string),
		identities:    make(map[string]string),
	}
}

func identityKey(provider, subjectID string) string {
	return provider + "\x00" + subjectID
}

func (r *InMemoryUserRepository) CreateUser(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	if email != "" {
		if _, taken := r.byEmail[email]; taken {
			return ErrUserExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	r.users[user.ID] = &copied
	if email != "" {
		r.byEmail[email] = user.ID
	}
	if user.VerificationToken != "" {
		r.byVerifyToken[user.VerificationToken] = user.ID
	}
	return nil
}

func (r *InMemoryUserRepository) VerifyUser(ctx context.Context, token string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byVerifyToken[token]
	if !ok {
		return nil, ErrUserNotFound
	}
	delete(r.byVerifyToken, token)

	user := r.users[id]
	user.EmailVerified = true
	user.VerificationToken = ""
	copied := *user
	return &copied, nil
}

func (r *InMemoryUserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *InMemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *r.users[id]
	return &copied, nil
}

func (r *InMemoryUserRepository) LinkIdentity(ctx context.Context, identity *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[identity.UserID]; !ok {
		return ErrUserNotFound
	}
	r.identities[identityKey(identity.Provider, identity.SubjectID)] = identity.UserID
	return nil
}

func (r *InMemoryUserRepository) GetUserByIdentity(ctx context.Context, provider, subjectID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.identities[identityKey(provider, subjectID)]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *r.users[id]
	return &copied, nil
}

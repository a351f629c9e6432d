package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutriiq/pkg/db"
)

// PostgresUserRepository persists users and their provider identities.
//
// Expected schema:
//
//	CREATE TABLE users (
//	    id                 UUID PRIMARY KEY,
//	    email              TEXT,
//	    email_verified     BOOLEAN NOT NULL DEFAULT FALSE,
//	    verification_token TEXT NOT NULL DEFAULT '',
//	    name               TEXT NOT NULL DEFAULT '',
//	    picture            TEXT NOT NULL DEFAULT '',
//	    password_hash      TEXT NOT NULL DEFAULT '',
//	    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE UNIQUE INDEX users_email_key ON users (LOWER(email)) WHERE email <> '';
//
//	CREATE TABLE identities (
//	    provider   TEXT NOT NULL,
//	    subject_id TEXT NOT NULL,
//	    user_id    UUID NOT NULL REFERENCES users(id),
//	    PRIMARY KEY (provider, subject_id)
//	);
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(database *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: database}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO users (id, email, email_verified, verification_token, name, picture, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, strings.ToLower(user.Email), user.EmailVerified, user.VerificationToken,
		user.Name, user.Picture, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if db.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, email_verified, verification_token, name, picture, password_hash, created_at
		FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, email_verified, verification_token, name, picture, password_hash, created_at
		FROM users WHERE LOWER(email) = LOWER($1) AND email <> ''`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) LinkIdentity(ctx context.Context, identity *Identity) error {
	query := `
		INSERT INTO identities (provider, subject_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, identity.Provider, identity.SubjectID, identity.UserID)
	return err
}

func (r *PostgresUserRepository) GetUserByIdentity(ctx context.Context, provider, subjectID string) (*User, error) {
	query := `
		SELECT u.id, u.email, u.email_verified, u.verification_token, u.name, u.picture, u.password_hash, u.created_at
		FROM users u
		JOIN identities i ON i.user_id = u.id
		WHERE i.provider = $1 AND i.subject_id = $2`
	return r.scanUser(r.db.QueryRowContext(ctx, query, provider, subjectID))
}

func (r *PostgresUserRepository) VerifyUser(ctx context.Context, token string) (*User, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE, verification_token = ''
		WHERE verification_token = $1 AND verification_token <> ''
		RETURNING id, email, email_verified, verification_token, name, picture, password_hash, created_at`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.EmailVerified, &user.VerificationToken,
		&user.Name, &user.Picture, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

package auth

import (
	"errors"
	"time"

	"nutriiq/pkg/oauth2"
)

const (
	// SessionCookieName is the httpOnly cookie carrying the session token.
	SessionCookieName = "session_token"
	// HeaderSessionToken is the fallback header for clients without cookies.
	HeaderSessionToken = "x-session-token"
)

var (
	ErrInvalidSession   = errors.New("invalid session")
	ErrSessionExpired   = errors.New("session expired")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrInvalidKey       = errors.New("invalid api key")
	ErrMissingArtifact  = errors.New("missing credential artifact")
	ErrUserExists       = errors.New("user already exists")
	ErrBadCredentials   = errors.New("invalid email or password")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrEmailConflict    = errors.New("email belongs to an unverified account")
	ErrProviderTokens   = errors.New("no tokens stored for provider")
	ErrCredentialsStale = errors.New("provider credentials no longer valid")
)

// Callback failure tags. Each terminal failure of the callback flow maps to
// exactly one tag so the client can distinguish user cancellation from
// tampering from an expired attempt.
const (
	TagProviderDenied = "provider_denied"
	TagMissingState   = "missing_state"
	TagInvalidState   = "invalid_state"
	TagSessionLost    = "session_lost"
	TagExchangeFailed = "exchange_failed"
)

// FlowError is a callback failure carrying its delivery tag.
type FlowError struct {
	Tag string
	Err error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return e.Tag + ": " + e.Err.Error()
	}
	return e.Tag
}

func (e *FlowError) Unwrap() error { return e.Err }

func flowErr(tag string, err error) *FlowError {
	return &FlowError{Tag: tag, Err: err}
}

// APIKeyPayload is stored in api-key sessions. The key itself is kept
// server-side so the browser never holds it after login.
type APIKeyPayload struct {
	APIKey string `json:"apiKey"`
}

// CredentialPayload is stored in provider-credential sessions.
type CredentialPayload struct {
	Bundle  oauth2.TokenBundle `json:"bundle"`
	Profile oauth2.Profile     `json:"profile"`
}

// IdentityPayload is stored in user-identity sessions.
type IdentityPayload struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider"`
}

// SignupResult is returned by local signup. The account stays unusable until
// the verification token is redeemed; no session exists yet.
type SignupResult struct {
	UserID            string
	Email             string
	VerificationToken string
}

// CallbackResult is the outcome of a completed redirect callback, handed to
// the delivery layer.
type CallbackResult struct {
	Provider     string
	SessionToken string
	Profile      *oauth2.Profile
	ExpiresAt    time.Time
}

// SessionInfo is the validated view of a session returned to handlers.
type SessionInfo struct {
	Token     string
	Kind      string
	Provider  string
	ExpiresAt time.Time
	Identity  *IdentityPayload
}

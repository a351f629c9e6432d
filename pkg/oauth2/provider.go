package oauth2

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds every outbound provider call. Exchanges are
// never retried: a consumed authorization code cannot be redeemed twice.
const DefaultRequestTimeout = 30 * time.Second

// Artifact is whatever a provider hands back that still has to be exchanged
// or verified before it yields usable credentials. Strategies read only the
// fields their flow shape needs.
type Artifact struct {
	// Code is an authorization code (code and PKCE flows).
	Code string
	// CodeVerifier is the PKCE verifier replayed at token-exchange time.
	CodeVerifier string
	// AccessToken is an already-obtained provider token (bearer verification).
	AccessToken string
	// IDToken is a signed identity assertion (ID-token flows).
	IDToken string
}

// Profile represents unified user information across providers.
type Profile struct {
	Provider      string `json:"provider"`
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
}

// TokenBundle is the normalized credential record produced by any exchange
// strategy. ExpiresAt is always absolute; the provider's raw expiry field is
// preserved alongside because some providers report a duration (expires_in)
// and others an absolute timestamp (expires_at), and downstream checks must
// not lose that distinction.
type TokenBundle struct {
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresIn    int64     `json:"expires_in,omitempty"`
	ExpiresAtRaw int64     `json:"expires_at_raw,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// Expired reports whether the bundle is past its absolute expiry.
func (b *TokenBundle) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && now.After(b.ExpiresAt)
}

// Exchanger turns an authorization artifact into a normalized token bundle
// and, where the provider returns one, a profile. Implementations must fail
// closed: no bundle is returned unless the provider confirmed the artifact.
type Exchanger interface {
	Name() string
	// UsesPKCE reports whether AuthCodeURL expects a code challenge and
	// Exchange expects the matching verifier.
	UsesPKCE() bool
	// AuthCodeURL builds the provider authorization URL for redirect-based
	// flows. Providers whose artifact is obtained client-side return "".
	AuthCodeURL(state, codeChallenge string) string
	Exchange(ctx context.Context, artifact *Artifact) (*TokenBundle, *Profile, error)
}

// ProfileFetcher is implemented by providers that can re-fetch the profile
// for an existing access token.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultRequestTimeout}
}

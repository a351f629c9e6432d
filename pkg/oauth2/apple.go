package oauth2

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

const appleIssuer = "https://appleid.apple.com"

// AppleConfig configures the Apple provider. Issuer is overridable for tests.
type AppleConfig struct {
	ClientID string
	Issuer   string
}

// AppleProvider implements the ID-token shape. The token's signature, issuer,
// audience and expiry are all verified against Apple's published keys before
// any claim is trusted; a decode-only shortcut is not acceptable here because
// the ID token is the sole proof of identity in this flow.
type AppleProvider struct {
	clientID string
	verifier *oidc.IDTokenVerifier
}

type appleClaims struct {
	Email          string `json:"email"`
	EmailVerified  any    `json:"email_verified"` // Apple sends bool or "true"
	IsPrivateEmail any    `json:"is_private_email"`
}

func NewAppleProvider(ctx context.Context, cfg AppleConfig) (*AppleProvider, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = appleIssuer
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create Apple OIDC provider: %w", err)
	}

	return &AppleProvider{
		clientID: cfg.ClientID,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (a *AppleProvider) Name() string {
	return "apple"
}

func (a *AppleProvider) UsesPKCE() bool {
	return false
}

func (a *AppleProvider) AuthCodeURL(state, codeChallenge string) string {
	return ""
}

func (a *AppleProvider) Exchange(ctx context.Context, artifact *Artifact) (*TokenBundle, *Profile, error) {
	if artifact.IDToken == "" {
		return nil, nil, fmt.Errorf("apple verification requires id token")
	}

	idToken, err := a.verifier.Verify(ctx, artifact.IDToken)
	if err != nil {
		return nil, nil, fmt.Errorf("id token verification failed: %w", err)
	}

	var claims appleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, nil, fmt.Errorf("failed to parse id token claims: %w", err)
	}

	if claims.Email == "" || !appleBool(claims.EmailVerified) {
		return nil, nil, ErrNoVerifiedEmail
	}

	profile := &Profile{
		Provider:      a.Name(),
		SubjectID:     idToken.Subject,
		Email:         claims.Email,
		EmailVerified: true,
	}

	// Apple issues no long-lived token we keep; the verified assertion is
	// the whole artifact.
	bundle := &TokenBundle{
		Provider:   a.Name(),
		ExpiresAt:  idToken.Expiry,
		ObtainedAt: time.Now(),
	}

	return bundle, profile, nil
}

// appleBool handles Apple's habit of sending booleans as strings.
func appleBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}

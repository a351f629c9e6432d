package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"
)

const (
	xAuthURL = "https://twitter.com/i/oauth2/authorize"
	// The token endpoint authenticates with HTTP Basic of clientID:clientSecret.
	xTokenURL = "https://api.twitter.com/2/oauth2/token"
	xMeURL    = "https://api.twitter.com/2/users/me"
)

// XConfig configures the X (Twitter) provider.
type XConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	MeURL      string
	HTTPClient *http.Client
}

// XProvider implements the PKCE authorization-code shape through
// golang.org/x/oauth2: AuthStyleInHeader produces the Basic-auth token
// request X requires, and the verifier is replayed as code_verifier.
type XProvider struct {
	config *xoauth2.Config
	meURL  string
	client *http.Client
}

type xUserResponse struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

func NewXProvider(cfg XConfig) *XProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"tweet.read", "users.read", "offline.access"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = xAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = xTokenURL
	}
	if cfg.MeURL == "" {
		cfg.MeURL = xMeURL
	}

	return &XProvider{
		config: &xoauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: xoauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: xoauth2.AuthStyleInHeader,
			},
		},
		meURL:  cfg.MeURL,
		client: defaultHTTPClient(cfg.HTTPClient),
	}
}

func (x *XProvider) Name() string {
	return "x"
}

func (x *XProvider) UsesPKCE() bool {
	return true
}

func (x *XProvider) AuthCodeURL(state, codeChallenge string) string {
	return x.config.AuthCodeURL(state,
		xoauth2.SetAuthURLParam("code_challenge", codeChallenge),
		xoauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (x *XProvider) Exchange(ctx context.Context, artifact *Artifact) (*TokenBundle, *Profile, error) {
	if artifact.Code == "" || artifact.CodeVerifier == "" {
		return nil, nil, fmt.Errorf("x exchange requires code and verifier")
	}

	ctx = context.WithValue(ctx, xoauth2.HTTPClient, x.client)
	token, err := x.config.Exchange(ctx, artifact.Code,
		xoauth2.SetAuthURLParam("code_verifier", artifact.CodeVerifier),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	now := time.Now()
	bundle := &TokenBundle{
		Provider:     x.Name(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		ObtainedAt:   now,
	}
	if !token.Expiry.IsZero() {
		bundle.ExpiresIn = int64(time.Until(token.Expiry) / time.Second)
	}

	profile, err := x.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	return bundle, profile, nil
}

func (x *XProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", x.meURL+"?user.fields=profile_image_url", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create users/me request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrProviderUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("users/me request failed (%d): %s", resp.StatusCode, string(body))
	}

	var user xUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	name := user.Data.Name
	if name == "" {
		name = user.Data.Username
	}

	return &Profile{
		Provider:  x.Name(),
		SubjectID: user.Data.ID,
		Name:      name,
		Picture:   user.Data.ProfileImageURL,
	}, nil
}

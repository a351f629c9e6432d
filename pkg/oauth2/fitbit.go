package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	fitbitAuthURL    = "https://www.fitbit.com/oauth2/authorize"
	fitbitTokenURL   = "https://api.fitbit.com/oauth2/token"
	fitbitProfileURL = "https://api.fitbit.com/1/user/-/profile.json"
)

// FitbitConfig configures the Fitbit provider. Endpoint fields default to the
// public Fitbit API and exist so tests can point at a stub server.
type FitbitConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL    string
	TokenURL   string
	ProfileURL string
	HTTPClient *http.Client
}

// FitbitProvider implements the PKCE authorization-code shape: the code is
// exchanged with the verifier and HTTP Basic auth of clientID:clientSecret,
// and the response carries a duration-based expiry (expires_in).
type FitbitProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string
	authURL      string
	tokenURL     string
	profileURL   string
	client       *http.Client
}

type fitbitTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       string `json:"user_id"`
}

type fitbitProfileResponse struct {
	User struct {
		EncodedID string `json:"encodedId"`
		FullName  string `json:"fullName"`
		Avatar    string `json:"avatar"`
	} `json:"user"`
}

func NewFitbitProvider(cfg FitbitConfig) *FitbitProvider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"activity", "heartrate", "nutrition", "profile", "sleep", "weight"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = fitbitAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = fitbitTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = fitbitProfileURL
	}

	return &FitbitProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		scopes:       cfg.Scopes,
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		profileURL:   cfg.ProfileURL,
		client:       defaultHTTPClient(cfg.HTTPClient),
	}
}

func (f *FitbitProvider) Name() string {
	return "fitbit"
}

func (f *FitbitProvider) UsesPKCE() bool {
	return true
}

func (f *FitbitProvider) AuthCodeURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("response_type", "code")
	params.Add("client_id", f.clientID)
	params.Add("redirect_uri", f.redirectURL)
	params.Add("scope", strings.Join(f.scopes, " "))
	params.Add("state", state)
	params.Add("code_challenge", codeChallenge)
	params.Add("code_challenge_method", "S256")
	params.Add("prompt", "consent")

	return f.authURL + "?" + params.Encode()
}

func (f *FitbitProvider) Exchange(ctx context.Context, artifact *Artifact) (*TokenBundle, *Profile, error) {
	if artifact.Code == "" || artifact.CodeVerifier == "" {
		return nil, nil, fmt.Errorf("fitbit exchange requires code and verifier")
	}

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", artifact.Code)
	data.Set("redirect_uri", f.redirectURL)
	data.Set("client_id", f.clientID)
	data.Set("code_verifier", artifact.CodeVerifier)

	req, err := http.NewRequestWithContext(ctx, "POST", f.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(f.clientID, f.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, string(body))
	}

	var tokenResp fitbitTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	now := time.Now()
	bundle := &TokenBundle{
		Provider:     f.Name(),
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
		ExpiresAt:    now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		Scope:        tokenResp.Scope,
		ObtainedAt:   now,
	}

	profile, err := f.FetchProfile(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	if profile.SubjectID == "" {
		profile.SubjectID = tokenResp.UserID
	}

	return bundle, profile, nil
}

func (f *FitbitProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrProviderUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("profile request failed (%d): %s", resp.StatusCode, string(body))
	}

	var profileResp fitbitProfileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profileResp); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	return &Profile{
		Provider:  f.Name(),
		SubjectID: profileResp.User.EncodedID,
		Name:      profileResp.User.FullName,
		Picture:   profileResp.User.Avatar,
	}, nil
}

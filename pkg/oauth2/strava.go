package oauth2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	stravaAuthURL    = "https://www.strava.com/oauth/authorize"
	stravaTokenURL   = "https://www.strava.com/oauth/token"
	stravaAthleteURL = "https://www.strava.com/api/v3/athlete"
)

// StravaConfig configures the Strava provider.
type StravaConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string

	AuthURL    string
	TokenURL   string
	AthleteURL string
	HTTPClient *http.Client
}

// StravaProvider implements the plain authorization-code shape: no PKCE,
// client credentials posted in the JSON body, and an absolute expires_at
// timestamp instead of a duration. The athlete profile rides along in the
// token response, so no separate fetch is needed at exchange time.
type StravaProvider struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       string
	authURL      string
	tokenURL     string
	athleteURL   string
	client       *http.Client
}

type stravaAthlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Profile   string `json:"profile"`
}

type stravaTokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    int64         `json:"expires_at"`
	Athlete      stravaAthlete `json:"athlete"`
}

func NewStravaProvider(cfg StravaConfig) *StravaProvider {
	if cfg.Scopes == "" {
		cfg.Scopes = "read,activity:read_all,profile:read_all"
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = stravaAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = stravaTokenURL
	}
	if cfg.AthleteURL == "" {
		cfg.AthleteURL = stravaAthleteURL
	}

	return &StravaProvider{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.RedirectURL,
		scopes:       cfg.Scopes,
		authURL:      cfg.AuthURL,
		tokenURL:     cfg.TokenURL,
		athleteURL:   cfg.AthleteURL,
		client:       defaultHTTPClient(cfg.HTTPClient),
	}
}

func (s *StravaProvider) Name() string {
	return "strava"
}

func (s *StravaProvider) UsesPKCE() bool {
	return false
}

func (s *StravaProvider) AuthCodeURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("client_id", s.clientID)
	params.Add("redirect_uri", s.redirectURL)
	params.Add("response_type", "code")
	params.Add("scope", s.scopes)
	params.Add("state", state)
	params.Add("approval_prompt", "force")

	return s.authURL + "?" + params.Encode()
}

func (s *StravaProvider) Exchange(ctx context.Context, artifact *Artifact) (*TokenBundle, *Profile, error) {
	if artifact.Code == "" {
		return nil, nil, fmt.Errorf("strava exchange requires code")
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     s.clientID,
		"client_secret": s.clientSecret,
		"code":          artifact.Code,
		"grant_type":    "authorization_code",
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("token exchange failed (%d): %s", resp.StatusCode, string(body))
	}

	var tokenResp stravaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	// Strava reports an absolute unix expiry; preserve it raw alongside the
	// normalized time so nothing downstream loses precision.
	bundle := &TokenBundle{
		Provider:     s.Name(),
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresAtRaw: tokenResp.ExpiresAt,
		ExpiresAt:    time.Unix(tokenResp.ExpiresAt, 0),
		ObtainedAt:   time.Now(),
	}

	name := tokenResp.Athlete.Firstname
	if tokenResp.Athlete.Lastname != "" {
		name += " " + tokenResp.Athlete.Lastname
	}
	if name == "" {
		name = tokenResp.Athlete.Username
	}

	profile := &Profile{
		Provider:  s.Name(),
		SubjectID: strconv.FormatInt(tokenResp.Athlete.ID, 10),
		Name:      name,
		Picture:   tokenResp.Athlete.Profile,
	}

	return bundle, profile, nil
}

func (s *StravaProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.athleteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create athlete request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrProviderUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("athlete request failed (%d): %s", resp.StatusCode, string(body))
	}

	var athlete stravaAthlete
	if err := json.NewDecoder(resp.Body).Decode(&athlete); err != nil {
		return nil, fmt.Errorf("failed to decode athlete: %w", err)
	}

	name := athlete.Firstname
	if athlete.Lastname != "" {
		name += " " + athlete.Lastname
	}

	return &Profile{
		Provider:  s.Name(),
		SubjectID: strconv.FormatInt(athlete.ID, 10),
		Name:      name,
		Picture:   athlete.Profile,
	}, nil
}

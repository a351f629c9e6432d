package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitbitProvider_AuthCodeURL(t *testing.T) {
	provider := NewFitbitProvider(FitbitConfig{
		ClientID:    "client-id",
		RedirectURL: "https://app.example.com/auth/fitbit/callback",
	})

	rawURL := provider.AuthCodeURL("state-abc", "challenge-xyz")
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)

	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-abc", q.Get("state"))
	assert.Equal(t, "challenge-xyz", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "consent", q.Get("prompt"))
}

func TestFitbitProvider_Exchange(t *testing.T) {
	var gotForm url.Values
	var gotBasicUser, gotBasicPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			require.NoError(t, r.ParseForm())
			gotForm = r.PostForm
			gotBasicUser, gotBasicPass, _ = r.BasicAuth()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":28800,"scope":"profile","user_id":"ABC123"}`))
		case "/profile":
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"user":{"encodedId":"ABC123","fullName":"Test User","avatar":"https://img"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	provider := NewFitbitProvider(FitbitConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://app.example.com/auth/fitbit/callback",
		TokenURL:     srv.URL + "/token",
		ProfileURL:   srv.URL + "/profile",
	})

	bundle, profile, err := provider.Exchange(context.Background(), &Artifact{
		Code:         "auth-code",
		CodeVerifier: "verifier-123",
	})
	require.NoError(t, err)

	assert.Equal(t, "client-id", gotBasicUser)
	assert.Equal(t, "client-secret", gotBasicPass)
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "verifier-123", gotForm.Get("code_verifier"))

	assert.Equal(t, "fitbit", bundle.Provider)
	assert.Equal(t, "at-1", bundle.AccessToken)
	assert.Equal(t, int64(28800), bundle.ExpiresIn)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), bundle.ExpiresAt, time.Minute)

	assert.Equal(t, "ABC123", profile.SubjectID)
	assert.Equal(t, "Test User", profile.Name)
}

func TestFitbitProvider_Exchange_RequiresVerifier(t *testing.T) {
	provider := NewFitbitProvider(FitbitConfig{ClientID: "id"})

	_, _, err := provider.Exchange(context.Background(), &Artifact{Code: "code-only"})
	assert.Error(t, err)
}

func TestFitbitProvider_Exchange_FailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"errorType":"invalid_grant"}]}`))
	}))
	defer srv.Close()

	provider := NewFitbitProvider(FitbitConfig{
		ClientID: "id",
		TokenURL: srv.URL,
	})

	bundle, profile, err := provider.Exchange(context.Background(), &Artifact{
		Code:         "bad-code",
		CodeVerifier: "verifier",
	})
	assert.Error(t, err)
	assert.Nil(t, bundle)
	assert.Nil(t, profile)
}

func TestFitbitProvider_FetchProfile_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewFitbitProvider(FitbitConfig{
		ClientID:   "id",
		ProfileURL: srv.URL,
	})

	_, err := provider.FetchProfile(context.Background(), "dead-token")
	assert.ErrorIs(t, err, ErrProviderUnauthorized)
}

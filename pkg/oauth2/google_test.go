package oauth2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleProvider_Exchange_VerifiesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer client-obtained-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"g-123","email":"user@example.com","verified_email":true,"name":"Test User","picture":"https://img"}`))
	}))
	defer srv.Close()

	provider := NewGoogleProvider(GoogleConfig{
		ClientID:    "client-id",
		UserInfoURL: srv.URL,
	})

	bundle, profile, err := provider.Exchange(context.Background(), &Artifact{
		AccessToken: "client-obtained-token",
	})
	require.NoError(t, err)

	assert.Equal(t, "client-obtained-token", bundle.AccessToken)
	assert.Equal(t, "g-123", profile.SubjectID)
	assert.Equal(t, "user@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
}

func TestGoogleProvider_Exchange_RejectsUnverifiedEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"g-123","email":"user@example.com","verified_email":false}`))
	}))
	defer srv.Close()

	provider := NewGoogleProvider(GoogleConfig{UserInfoURL: srv.URL})

	_, _, err := provider.Exchange(context.Background(), &Artifact{AccessToken: "token"})
	assert.ErrorIs(t, err, ErrNoVerifiedEmail)
}

func TestGoogleProvider_Exchange_RejectsBadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewGoogleProvider(GoogleConfig{UserInfoURL: srv.URL})

	_, _, err := provider.Exchange(context.Background(), &Artifact{AccessToken: "forged"})
	assert.ErrorIs(t, err, ErrProviderUnauthorized)
}

func TestGoogleProvider_Exchange_RequiresAccessToken(t *testing.T) {
	provider := NewGoogleProvider(GoogleConfig{})

	_, _, err := provider.Exchange(context.Background(), &Artifact{Code: "code-is-not-enough"})
	assert.Error(t, err)
}

func TestGoogleProvider_NoRedirectURL(t *testing.T) {
	provider := NewGoogleProvider(GoogleConfig{ClientID: "id"})
	assert.Empty(t, provider.AuthCodeURL("state", ""))
}

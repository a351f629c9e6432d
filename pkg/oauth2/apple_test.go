package oauth2

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oidcDiscoveryStub serves the minimal discovery document NewAppleProvider
// needs, with itself as issuer.
func oidcDiscoveryStub(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"issuer":                                srv.URL,
				"jwks_uri":                              srv.URL + "/keys",
				"id_token_signing_alg_values_supported": []string{"RS256"},
			})
		case "/keys":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"keys":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewAppleProvider(t *testing.T) {
	srv := oidcDiscoveryStub(t)

	provider, err := NewAppleProvider(context.Background(), AppleConfig{
		ClientID: "com.example.app",
		Issuer:   srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "apple", provider.Name())
	assert.False(t, provider.UsesPKCE())
	assert.Empty(t, provider.AuthCodeURL("state", ""))
}

func TestAppleProvider_Exchange_RequiresIDToken(t *testing.T) {
	srv := oidcDiscoveryStub(t)

	provider, err := NewAppleProvider(context.Background(), AppleConfig{
		ClientID: "com.example.app",
		Issuer:   srv.URL,
	})
	require.NoError(t, err)

	_, _, err = provider.Exchange(context.Background(), &Artifact{AccessToken: "not-an-id-token"})
	assert.Error(t, err)
}

func TestAppleProvider_Exchange_RejectsUnverifiableToken(t *testing.T) {
	srv := oidcDiscoveryStub(t)

	provider, err := NewAppleProvider(context.Background(), AppleConfig{
		ClientID: "com.example.app",
		Issuer:   srv.URL,
	})
	require.NoError(t, err)

	// Structurally valid but unsigned by any published key
	_, _, err = provider.Exchange(context.Background(), &Artifact{
		IDToken: "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiJmb3JnZWQifQ.Zm9yZ2Vk",
	})
	assert.Error(t, err)
}

func TestAppleBool(t *testing.T) {
	assert.True(t, appleBool(true))
	assert.True(t, appleBool("true"))
	assert.False(t, appleBool(false))
	assert.False(t, appleBool("false"))
	assert.False(t, appleBool(nil))
	assert.False(t, appleBool(1))
}

package oauth2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 64) // hex doubles the byte count
}

func TestGenerateRandomString_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		s, err := GenerateRandomString(32)
		require.NoError(t, err)
		require.False(t, seen[s], "generated a duplicate state")
		seen[s] = true
	}
}

func TestGenerateCodeVerifier(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	// 32 bytes base64url-encoded, the RFC 7636 minimum length
	assert.Len(t, verifier, 43)
	assert.NotContains(t, verifier, "=")
	assert.NotContains(t, verifier, "+")
	assert.NotContains(t, verifier, "/")
}

func TestGenerateCodeChallenge(t *testing.T) {
	// Known vector from RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := GenerateCodeChallenge(verifier)
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
}

func TestGenerateCodeChallenge_Deterministic(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.Equal(t, GenerateCodeChallenge(verifier), GenerateCodeChallenge(verifier))
}

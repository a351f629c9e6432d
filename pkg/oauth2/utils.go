package oauth2

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateRandomString generates a cryptographically secure random string of
// length bytes, hex encoded. Used for CSRF states and session tokens; 32
// bytes is the floor for anything exposed to a client.
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateCodeVerifier generates a PKCE code verifier (43-128 characters)
func GenerateCodeVerifier() (string, error) {
	// 32 random bytes = 43 characters in base64url, the RFC 7636 minimum
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64URLEncode(bytes), nil
}

// GenerateCodeChallenge generates a PKCE code challenge from verifier using
// the S256 method. Deterministic: the same verifier always yields the same
// challenge.
func GenerateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64URLEncode(hash[:])
}

// base64URLEncode encodes bytes to base64url format (RFC 7636)
func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

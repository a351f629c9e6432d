package oauth2

import "errors"

var (
	// ErrProviderUnauthorized means the provider rejected a stored access
	// token (HTTP 401); the credential bundle is no longer usable.
	ErrProviderUnauthorized = errors.New("provider rejected access token")
	// ErrNoVerifiedEmail means the provider did not report a verified email
	// for the account, so identity correlation cannot proceed safely.
	ErrNoVerifiedEmail = errors.New("no verified email from provider")
)

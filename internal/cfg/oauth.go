package cfg

import "time"

// ProviderCredentials is one provider's registered client id/secret and the
// redirect URI that must byte-match what the provider has on file.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the provider was configured at all. Unconfigured
// providers are simply not registered.
func (p ProviderCredentials) Enabled() bool {
	return p.ClientID != ""
}

type OAuthConfig struct {
	Google   ProviderCredentials
	Facebook ProviderCredentials
	Apple    ProviderCredentials
	Fitbit   ProviderCredentials
	Strava   ProviderCredentials
	X        ProviderCredentials

	// ClientOrigin is the frontend origin callback results are delivered to,
	// both as the postMessage target origin and the redirect-fallback base.
	ClientOrigin string

	AttemptTTL      time.Duration
	SessionTTL      time.Duration
	SweepInterval   time.Duration
	ProviderTimeout time.Duration
}

func (l *Loader) loadOAuth() OAuthConfig {
	return OAuthConfig{
		Google: ProviderCredentials{
			ClientID:     l.getEnvWithDefault("GOOGLE_CLIENT_ID", ""),
			ClientSecret: l.getEnvWithDefault("GOOGLE_CLIENT_SECRET", ""),
		},
		Facebook: ProviderCredentials{
			ClientID:     l.getEnvWithDefault("FACEBOOK_APP_ID", ""),
			ClientSecret: l.getEnvWithDefault("FACEBOOK_APP_SECRET", ""),
		},
		Apple: ProviderCredentials{
			ClientID: l.getEnvWithDefault("APPLE_CLIENT_ID", ""),
		},
		Fitbit: ProviderCredentials{
			ClientID:     l.getEnvWithDefault("FITBIT_CLIENT_ID", ""),
			ClientSecret: l.getEnvWithDefault("FITBIT_CLIENT_SECRET", ""),
			RedirectURL:  l.getEnvWithDefault("FITBIT_REDIRECT_URI", ""),
		},
		Strava: ProviderCredentials{
			ClientID:     l.getEnvWithDefault("STRAVA_CLIENT_ID", ""),
			ClientSecret: l.getEnvWithDefault("STRAVA_CLIENT_SECRET", ""),
			RedirectURL:  l.getEnvWithDefault("STRAVA_REDIRECT_URI", ""),
		},
		X: ProviderCredentials{
			ClientID:     l.getEnvWithDefault("X_CLIENT_ID", ""),
			ClientSecret: l.getEnvWithDefault("X_CLIENT_SECRET", ""),
			RedirectURL:  l.getEnvWithDefault("X_REDIRECT_URI", ""),
		},
		ClientOrigin:    l.getEnvWithDefault("CLIENT_ORIGIN", "http://localhost:3000"),
		AttemptTTL:      l.getEnvDurationOrDefault("ATTEMPT_TTL", 5*time.Minute),
		SessionTTL:      l.getEnvDurationOrDefault("SESSION_TTL", 4*time.Hour),
		SweepInterval:   l.getEnvDurationOrDefault("SWEEP_INTERVAL", time.Hour),
		ProviderTimeout: l.getEnvDurationOrDefault("PROVIDER_TIMEOUT", 30*time.Second),
	}
}

package cfg

import (
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	OpenAIURL  string
	OAuth      OAuthConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	HTTPServer HTTPServerConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() // ignore if .env missing (local only)

	l := NewLoader()

	cfg := &Config{
		AppEnv:     l.getEnvWithDefault("APP_ENV", "development"),
		OpenAIURL:  l.getEnvWithDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OAuth:      l.loadOAuth(),
		Redis:      l.loadRedis(),
		Postgres:   l.loadPostgres(),
		HTTPServer: l.loadHTTPServer(),
	}

	if l.HasErrors() {
		return nil, l.Error()
	}

	return cfg, nil
}

// Production reports whether the server runs with production hardening
// (secure cookies, info-level logs).
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

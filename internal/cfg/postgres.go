package cfg

// PostgresConfig is optional: an empty DSN means the in-memory user
// repository is used.
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

func (l *Loader) loadPostgres() PostgresConfig {
	return PostgresConfig{
		DSN:          l.getEnvWithDefault("DATABASE_URL", ""),
		MaxOpenConns: l.getEnvIntWithDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: l.getEnvIntWithDefault("DB_MAX_IDLE_CONNS", 5),
	}
}

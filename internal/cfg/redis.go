package cfg

// RedisConfig is optional: an empty Addr means the in-memory stores are used.
type RedisConfig struct {
	Addr     string
	Password string
}

func (l *Loader) loadRedis() RedisConfig {
	return RedisConfig{
		Addr:     l.getEnvWithDefault("REDIS_ADDR", ""),
		Password: l.getEnvWithDefault("REDIS_PASSWORD", ""),
	}
}

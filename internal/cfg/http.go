package cfg

import "time"

type HTTPServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (l *Loader) loadHTTPServer() HTTPServerConfig {
	return HTTPServerConfig{
		Port:         l.getEnvWithDefault("PORT", "3001"),
		ReadTimeout:  l.getEnvDurationOrDefault("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: l.getEnvDurationOrDefault("HTTP_WRITE_TIMEOUT", 60*time.Second),
	}
}

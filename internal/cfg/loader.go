package cfg

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Loader struct {
	errs []error
}

func NewLoader() *Loader {
	return &Loader{errs: make([]error, 0)}
}

func (l *Loader) HasErrors() bool {
	return len(l.errs) > 0
}

func (l *Loader) Error() error {
	if len(l.errs) > 0 {
		return errors.Join(l.errs...)
	}
	return nil
}

func (l *Loader) requireEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		l.errs = append(l.errs, errors.New("missing env: "+key))
	}
	return value
}

func (l *Loader) getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (l *Loader) getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		l.errs = append(l.errs, errors.New("invalid duration for "+key+": "+value))
		return defaultValue
	}
	return duration
}

func (l *Loader) getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

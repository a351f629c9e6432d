package validator

import (
	"errors"
	"html"
	"regexp"
	"strings"
)

var (
	ProviderValidator = regexp.MustCompile(`^(google|facebook|apple|x|fitbit|strava)$`)
	EmailValidator    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidProvider = errors.New("invalid provider")
)

func ValidateProvider(provider string) error {
	if provider == "" {
		return ErrMissingField
	}
	if !ProviderValidator.MatchString(provider) {
		return ErrInvalidProvider
	}
	return nil
}

func ValidateEmail(email string) error {
	if email == "" {
		return ErrMissingField
	}
	if len(email) > 254 || !EmailValidator.MatchString(email) {
		return ErrInvalidInput
	}
	return nil
}

func SanitizeString(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

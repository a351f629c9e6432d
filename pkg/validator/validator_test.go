package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProvider(t *testing.T) {
	for _, provider := range []string{"google", "facebook", "apple", "x", "fitbit", "strava"} {
		assert.NoError(t, ValidateProvider(provider), provider)
	}

	assert.ErrorIs(t, ValidateProvider(""), ErrMissingField)
	assert.ErrorIs(t, ValidateProvider("myspace"), ErrInvalidProvider)
	assert.ErrorIs(t, ValidateProvider("GOOGLE"), ErrInvalidProvider)
	assert.ErrorIs(t, ValidateProvider("google "), ErrInvalidProvider)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrMissingField)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateEmail("user@nodot"), ErrInvalidInput)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "plain name", SanitizeString("  plain name  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeString("<script>"))
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// KeyValidator checks an API key against its issuer before a session is
// minted for it.
type KeyValidator interface {
	ValidateKey(ctx context.Context, key string) error
}

// OpenAIKeyValidator validates keys with a cheap authenticated list call.
// Transport failures are retried; a definitive 401/403 is not.
type OpenAIKeyValidator struct {
	baseURL string
	client  *http.Client
}

func NewOpenAIKeyValidator(baseURL string, client *http.Client) *OpenAIKeyValidator {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenAIKeyValidator{baseURL: baseURL, client: client}
}

func (v *OpenAIKeyValidator) ValidateKey(ctx context.Context, key string) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/v1/models", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+key)

			resp, err := v.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return retry.Unrecoverable(ErrInvalidKey)
			case resp.StatusCode >= 500:
				return fmt.Errorf("key validation upstream error: %d", resp.StatusCode)
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("key validation rejected: %d", resp.StatusCode))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

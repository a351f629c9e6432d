package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nutriiq/pkg/logger"
	"nutriiq/pkg/oauth2"
	"nutriiq/pkg/session"
	"nutriiq/pkg/validator"
)

// CallbackParams carries what the provider sent back on the redirect.
type CallbackParams struct {
	Provider    string
	Code        string
	State       string
	ProviderErr string
}

// CompleteCallback runs the redirect half of an authorization-code flow:
// burn the attempt, verify the state, exchange the code, fetch the profile,
// and mint a provider-credential session. Every failure carries one tag.
//
// The attempt is consumed before the state is judged so a replayed callback
// can never be exchanged twice.
func (s *Service) CompleteCallback(ctx context.Context, params CallbackParams) (*CallbackResult, error) {
	// The raw path segment never becomes a metric label: anything outside
	// the known provider names is counted under a single fixed value.
	providerName := params.Provider
	if err := validator.ValidateProvider(providerName); err != nil {
		s.metrics.RecordFlow("unknown", TagInvalidState)
		return nil, flowErr(TagInvalidState, ErrUnknownProvider)
	}
	provider, ok := s.providers[providerName]
	if !ok {
		s.metrics.RecordFlow(providerName, TagInvalidState)
		return nil, flowErr(TagInvalidState, ErrUnknownProvider)
	}

	if params.ProviderErr != "" {
		s.metrics.RecordFlow(providerName, TagProviderDenied)
		s.log.Info(ctx, "provider denied authorization",
			logger.Field{Key: "provider", Value: providerName},
			logger.Field{Key: "reason", Value: params.ProviderErr})
		return nil, flowErr(TagProviderDenied, errors.New(params.ProviderErr))
	}
	if params.State == "" {
		s.metrics.RecordFlow(providerName, TagMissingState)
		return nil, flowErr(TagMissingState, errors.New("callback without state"))
	}

	attempt, err := s.attempts.ConsumeAttempt(ctx, params.State)
	if err != nil {
		switch {
		case errors.Is(err, oauth2.ErrAttemptExpired):
			s.metrics.RecordFlow(providerName, TagInvalidState)
			return nil, flowErr(TagInvalidState, err)
		case errors.Is(err, oauth2.ErrAttemptNotFound):
			s.metrics.RecordFlow(providerName, TagSessionLost)
			return nil, flowErr(TagSessionLost, err)
		default:
			s.metrics.RecordFlow(providerName, TagSessionLost)
			return nil, flowErr(TagSessionLost, err)
		}
	}
	if attempt.Provider != providerName {
		s.metrics.RecordFlow(providerName, TagInvalidState)
		return nil, flowErr(TagInvalidState, errors.New("state issued for another provider"))
	}
	if params.Code == "" {
		s.metrics.RecordFlow(providerName, TagExchangeFailed)
		return nil, flowErr(TagExchangeFailed, errors.New("callback without code"))
	}

	bundle, profile, err := provider.Exchange(ctx, &oauth2.Artifact{
		Code:         params.Code,
		CodeVerifier: attempt.CodeVerifier,
	})
	if err != nil {
		s.metrics.RecordFlow(providerName, TagExchangeFailed)
		s.log.Warn(ctx, "code exchange failed",
			logger.Field{Key: "provider", Value: providerName},
			logger.Field{Key: "error", Value: err.Error()})
		return nil, flowErr(TagExchangeFailed, err)
	}

	if profile == nil {
		if fetcher, ok := provider.(oauth2.ProfileFetcher); ok {
			profile, err = fetcher.FetchProfile(ctx, bundle.AccessToken)
			if err != nil {
				s.metrics.RecordFlow(providerName, TagExchangeFailed)
				return nil, flowErr(TagExchangeFailed, err)
			}
		}
	}

	credential := CredentialPayload{Bundle: *bundle}
	if profile != nil {
		credential.Profile = *profile
	}
	payload, _ := json.Marshal(credential)
	record, err := s.putSession(ctx, session.KindProviderCredential, providerName, payload)
	if err != nil {
		s.metrics.RecordFlow(providerName, TagExchangeFailed)
		return nil, flowErr(TagExchangeFailed, err)
	}

	s.metrics.RecordFlow(providerName, "success")
	s.log.Info(ctx, "callback completed",
		logger.Field{Key: "provider", Value: providerName},
		logger.Field{Key: "flowDuration", Value: time.Since(attempt.CreatedAt).String()})

	return &CallbackResult{
		Provider:     providerName,
		SessionToken: record.Token,
		Profile:      profile,
		ExpiresAt:    record.ExpiresAt,
	}, nil
}

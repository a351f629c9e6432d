package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nutriiq/pkg/logger"
	"nutriiq/pkg/oauth2"
	"nutriiq/pkg/session"
	"nutriiq/pkg/validator"
)

// Service owns the authentication lifecycle: initiating provider flows,
// completing callbacks, minting and validating sessions, and local accounts.
type Service struct {
	providers map[string]oauth2.Exchanger
	attempts  oauth2.AttemptStorage
	sessions  session.Store
	users     UserRepository
	keys      KeyValidator
	log       logger.Logger
	metrics   *Metrics

	attemptTTL time.Duration
	sessionTTL time.Duration
}

type ServiceConfig struct {
	Attempts     oauth2.AttemptStorage
	Sessions     session.Store
	Users        UserRepository
	KeyValidator KeyValidator
	Logger       logger.Logger
	Metrics      *Metrics
	AttemptTTL   time.Duration
	SessionTTL   time.Duration
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 4 * time.Hour
	}
	return &Service{
		providers:  make(map[string]oauth2.Exchanger),
		attempts:   cfg.Attempts,
		sessions:   cfg.Sessions,
		users:      cfg.Users,
		keys:       cfg.KeyValidator,
		log:        cfg.Logger,
		metrics:    cfg.Metrics,
		attemptTTL: cfg.AttemptTTL,
		sessionTTL: cfg.SessionTTL,
	}
}

func (s *Service) RegisterProvider(provider oauth2.Exchanger) {
	s.providers[provider.Name()] = provider
}

func (s *Service) Provider(name string) (oauth2.Exchanger, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// InitiateLogin creates a pending attempt and returns the provider
// authorization URL the client should open. Only redirect-style providers
// support initiation.
func (s *Service) InitiateLogin(ctx context.Context, providerName string) (string, error) {
	if err := validator.ValidateProvider(providerName); err != nil {
		return "", ErrUnknownProvider
	}
	provider, ok := s.providers[providerName]
	if !ok {
		return "", ErrUnknownProvider
	}

	state, err := oauth2.GenerateRandomString(32)
	if err != nil {
		return "", err
	}
	attempt := &oauth2.Attempt{
		State:     state,
		Provider:  providerName,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(s.attemptTTL),
	}

	var challenge string
	if provider.UsesPKCE() {
		verifier, err := oauth2.GenerateCodeVerifier()
		if err != nil {
			return "", err
		}
		challenge = oauth2.GenerateCodeChallenge(verifier)
		attempt.CodeVerifier = verifier
	}

	authURL := provider.AuthCodeURL(state, challenge)
	if authURL == "" {
		return "", ErrUnknownProvider
	}
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		return "", err
	}

	s.log.Info(ctx, "login initiated",
		logger.Field{Key: "provider", Value: providerName})
	return authURL, nil
}

// AuthenticateWithToken handles providers whose clients obtain the credential
// themselves (Google access token, Apple id token, Facebook access token).
// The artifact is verified server-side before any session exists.
func (s *Service) AuthenticateWithToken(ctx context.Context, providerName string, artifact *oauth2.Artifact) (*SessionInfo, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	// The bundle is discarded: identity sessions never hold provider tokens.
	_, profile, err := provider.Exchange(ctx, artifact)
	if err != nil {
		s.metrics.RecordFlow(providerName, "failure")
		s.log.Warn(ctx, "token verification failed",
			logger.Field{Key: "provider", Value: providerName},
			logger.Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	user, err := s.resolveUser(ctx, profile)
	if err != nil {
		s.metrics.RecordFlow(providerName, "failure")
		return nil, err
	}

	info, err := s.mintIdentitySession(ctx, user, providerName)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFlow(providerName, "success")
	return info, nil
}

// LoginWithAPIKey validates the key with its issuer and, if valid, mints an
// api-key session holding the key server-side.
func (s *Service) LoginWithAPIKey(ctx context.Context, key string) (*SessionInfo, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}
	if err := s.keys.ValidateKey(ctx, key); err != nil {
		s.metrics.RecordFlow("api_key", "failure")
		return nil, err
	}

	payload, _ := json.Marshal(APIKeyPayload{APIKey: key})
	record, err := s.putSession(ctx, session.KindAPIKey, "", payload)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordFlow("api_key", "success")
	s.log.Info(ctx, "api key session created",
		logger.Field{Key: "expiresAt", Value: record.ExpiresAt})
	return &SessionInfo{
		Token:     record.Token,
		Kind:      string(record.Kind),
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// ValidateSession resolves a token to a live session, distinguishing a token
// that was never valid from one that expired.
func (s *Service) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	record, err := s.sessions.Get(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionExpired):
			return nil, ErrSessionExpired
		case errors.Is(err, session.ErrSessionNotFound):
			return nil, ErrInvalidSession
		default:
			return nil, err
		}
	}

	info := &SessionInfo{
		Token:     record.Token,
		Kind:      string(record.Kind),
		Provider:  record.Provider,
		ExpiresAt: record.ExpiresAt,
	}
	if record.Kind == session.KindUserIdentity {
		var identity IdentityPayload
		if err := json.Unmarshal(record.Payload, &identity); err == nil {
			info.Identity = &identity
		}
	}
	return info, nil
}

// Logout removes the session. Unknown tokens are not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// APIKey returns the key held by an api-key session.
func (s *Service) APIKey(ctx context.Context, token string) (string, error) {
	record, err := s.sessions.Get(ctx, token)
	if err != nil {
		return "", ErrInvalidSession
	}
	if record.Kind != session.KindAPIKey {
		return "", ErrInvalidSession
	}
	var payload APIKeyPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return "", err
	}
	return payload.APIKey, nil
}

// StoreProviderTokens mints a provider-credential session for tokens the
// client already holds, e.g. after a native-app flow.
func (s *Service) StoreProviderTokens(ctx context.Context, providerName string, bundle *oauth2.TokenBundle) (*SessionInfo, error) {
	if err := validator.ValidateProvider(providerName); err != nil {
		return nil, ErrUnknownProvider
	}
	if bundle == nil || bundle.AccessToken == "" {
		return nil, ErrMissingArtifact
	}
	bundle.Provider = providerName
	if bundle.ObtainedAt.IsZero() {
		bundle.ObtainedAt = time.Now()
	}

	payload, _ := json.Marshal(CredentialPayload{Bundle: *bundle})
	record, err := s.putSession(ctx, session.KindProviderCredential, providerName, payload)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Token:     record.Token,
		Kind:      string(record.Kind),
		Provider:  record.Provider,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// CredentialFor returns the stored token bundle of a provider-credential
// session, refusing bundles whose provider tokens themselves expired.
func (s *Service) CredentialFor(ctx context.Context, token, providerName string) (*oauth2.TokenBundle, error) {
	record, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, ErrInvalidSession
	}
	if record.Kind != session.KindProviderCredential || record.Provider != providerName {
		return nil, ErrProviderTokens
	}
	var payload CredentialPayload
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return nil, err
	}
	if payload.Bundle.Expired(time.Now()) {
		return nil, ErrCredentialsStale
	}
	return &payload.Bundle, nil
}

// ProviderProfile proxies a profile fetch with the stored credential. A
// definitive 401 from the provider deletes the session: the tokens are dead
// and keeping them only produces repeat failures.
func (s *Service) ProviderProfile(ctx context.Context, token, providerName string) (*oauth2.Profile, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}
	fetcher, ok := provider.(oauth2.ProfileFetcher)
	if !ok {
		return nil, ErrUnknownProvider
	}

	bundle, err := s.CredentialFor(ctx, token, providerName)
	if err != nil {
		return nil, err
	}

	profile, err := fetcher.FetchProfile(ctx, bundle.AccessToken)
	if err != nil {
		if errors.Is(err, oauth2.ErrProviderUnauthorized) {
			if delErr := s.sessions.Delete(ctx, token); delErr != nil {
				s.log.Warn(ctx, "failed to delete stale credential session",
					logger.Field{Key: "error", Value: delErr.Error()})
			}
			return nil, ErrCredentialsStale
		}
		return nil, err
	}
	return profile, nil
}

// Signup creates a local password account. The account starts unverified and
// cannot log in or be linked until its verification token is redeemed; no
// session is issued here. There is no mail transport wired, so the token is
// written to the log for out-of-band delivery.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*SignupResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validator.ValidateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	verifyToken, err := oauth2.GenerateRandomString(32)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:             email,
		EmailVerified:     false,
		VerificationToken: verifyToken,
		Name:              validator.SanitizeString(name),
		PasswordHash:      string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "local account created, verification pending",
		logger.Field{Key: "userId", Value: user.ID},
		logger.Field{Key: "verificationToken", Value: verifyToken})
	return &SignupResult{
		UserID:            user.ID,
		Email:             user.Email,
		VerificationToken: verifyToken,
	}, nil
}

// VerifyEmail redeems a signup verification token and completes the signup
// with a logged-in session.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.VerifyUser(ctx, token)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "email verified",
		logger.Field{Key: "userId", Value: user.ID})
	return s.mintIdentitySession(ctx, user, "local")
}

// Login authenticates a local password account. Missing user and wrong
// password collapse into one error so the endpoint cannot be used to test
// for account existence. Unverified accounts are refused after the password
// check so
// only the account holder learns the verification status.
func (s *Service) Login(ctx context.Context, email, password string) (*SessionInfo, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrBadCredentials
	}
	if user.PasswordHash == "" {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return s.mintIdentitySession(ctx, user, "local")
}

// resolveUser maps a verified provider profile to an application user,
// creating one on first sight. Correlation is by provider identity first,
// then by verified email, so one verified email never yields two users.
//
// Email correlation requires the stored account to be verified on both
// sides: an unverified local signup holding the same address is a squatter
// until its owner proves the address, never a link target.
func (s *Service) resolveUser(ctx context.Context, profile *oauth2.Profile) (*User, error) {
	user, err := s.users.GetUserByIdentity(ctx, profile.Provider, profile.SubjectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if profile.Email != "" && profile.EmailVerified {
		user, err = s.users.GetUserByEmail(ctx, profile.Email)
		if err == nil {
			if !user.EmailVerified {
				return nil, ErrEmailConflict
			}
			if linkErr := s.linkIdentity(ctx, profile, user.ID); linkErr != nil {
				return nil, linkErr
			}
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	user = &User{
		Email:         strings.ToLower(profile.Email),
		EmailVerified: profile.EmailVerified,
		Name:          profile.Name,
		Picture:       profile.Picture,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent signup with the same email:
		// adopt the existing account instead of failing the login.
		if errors.Is(err, ErrUserExists) && profile.Email != "" {
			user, err = s.users.GetUserByEmail(ctx, profile.Email)
			if err != nil {
				return nil, err
			}
			if !user.EmailVerified {
				return nil, ErrEmailConflict
			}
		} else {
			return nil, err
		}
	}
	if err := s.linkIdentity(ctx, profile, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) linkIdentity(ctx context.Context, profile *oauth2.Profile, userID string) error {
	return s.users.LinkIdentity(ctx, &Identity{
		Provider:  profile.Provider,
		SubjectID: profile.SubjectID,
		UserID:    userID,
	})
}

func (s *Service) mintIdentitySession(ctx context.Context, user *User, providerName string) (*SessionInfo, error) {
	identity := IdentityPayload{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Provider: providerName,
	}
	payload, _ := json.Marshal(identity)
	record, err := s.putSession(ctx, session.KindUserIdentity, providerName, payload)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		Token:     record.Token,
		Kind:      string(record.Kind),
		Provider:  record.Provider,
		ExpiresAt: record.ExpiresAt,
		Identity:  &identity,
	}, nil
}

func (s *Service) putSession(ctx context.Context, kind session.Kind, providerName string, payload json.RawMessage) (*session.Record, error) {
	token, err := oauth2.GenerateRandomString(32)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	record := &session.Record{
		Token:     token,
		Kind:      kind,
		Provider:  providerName,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Put(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

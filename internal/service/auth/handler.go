package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nutriiq/pkg/oauth2"
)

// Handler exposes the auth service over HTTP.
type Handler struct {
	service       *Service
	deliverer     *Deliverer
	secureCookies bool
}

func NewHandler(service *Service, deliverer *Deliverer, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		deliverer:     deliverer,
		secureCookies: secureCookies,
	}
}

// Authorize handles GET /auth/:provider and returns the URL the client
// should open to start a redirect flow.
func (h *Handler) Authorize(c *gin.Context) {
	authURL, err := h.service.InitiateLogin(c.Request.Context(), c.Param("provider"))
	if err != nil {
		if errors.Is(err, ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authUrl": authURL})
}

// Callback handles GET /auth/:provider/callback. Success sets the session
// cookie and both paths render the delivery page, so the popup always gets
// a postMessage it can act on.
func (h *Handler) Callback(c *gin.Context) {
	params := CallbackParams{
		Provider:    c.Param("provider"),
		Code:        c.Query("code"),
		State:       c.Query("state"),
		ProviderErr: c.Query("error"),
	}

	result, err := h.service.CompleteCallback(c.Request.Context(), params)
	if err != nil {
		tag := TagExchangeFailed
		var fe *FlowError
		if errors.As(err, &fe) {
			tag = fe.Tag
		}
		h.deliverer.DeliverFailure(c.Writer, params.Provider, tag)
		return
	}

	h.setSessionCookie(c, result.SessionToken, result.ExpiresAt)
	h.deliverer.DeliverSuccess(c.Writer, result)
}

type tokenLoginRequest struct {
	AccessToken string `json:"accessToken"`
	IDToken     string `json:"idToken"`
	Code        string `json:"code"`
}

// TokenLogin handles POST /auth/:provider for providers whose clients obtain
// the credential themselves.
func (h *Handler) TokenLogin(c *gin.Context) {
	var req tokenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.AccessToken == "" && req.IDToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credential"})
		return
	}

	info, err := h.service.AuthenticateWithToken(c.Request.Context(), c.Param("provider"), &oauth2.Artifact{
		AccessToken: req.AccessToken,
		IDToken:     req.IDToken,
		Code:        req.Code,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownProvider):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		case errors.Is(err, oauth2.ErrNoVerifiedEmail):
			c.JSON(http.StatusForbidden, gin.H{"error": "account has no verified email"})
		case errors.Is(err, ErrEmailConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "email belongs to an unverified account"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		}
		return
	}

	h.setSessionCookie(c, info.Token, info.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse(info))
}

type apiKeyLoginRequest struct {
	APIKey string `json:"apiKey" binding:"required"`
}

// APIKeyLogin handles POST /auth. The key is validated upstream before a
// session holds it; the response never echoes the key back.
func (h *Handler) APIKeyLogin(c *gin.Context) {
	var req apiKeyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "apiKey is required"})
		return
	}

	info, err := h.service.LoginWithAPIKey(c.Request.Context(), req.APIKey)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "key validation unavailable"})
		return
	}

	h.setSessionCookie(c, info.Token, info.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse(info))
}

// ValidateSession handles GET /auth/session.
func (h *Handler) ValidateSession(c *gin.Context) {
	token := SessionTokenFromRequest(c)
	info, err := h.service.ValidateSession(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": sessionErrorCode(err)})
		return
	}
	c.JSON(http.StatusOK, sessionResponse(info))
}

// SessionCheck handles POST /auth/session/validate, a lighter check that
// never returns session contents.
func (h *Handler) SessionCheck(c *gin.Context) {
	token := SessionTokenFromRequest(c)
	if _, err := h.service.ValidateSession(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": sessionErrorCode(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func sessionErrorCode(err error) string {
	if errors.Is(err, ErrSessionExpired) {
		return "session-expired"
	}
	return "invalid-session"
}

// Logout handles POST /auth/logout. Idempotent: logging out twice succeeds.
func (h *Handler) Logout(c *gin.Context) {
	token := SessionTokenFromRequest(c)
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Signup handles POST /auth/signup. The account must redeem its verification
// token before it can log in, so no session cookie is set here and the token
// itself never appears in the response.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	result, err := h.service.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"email":                result.Email,
		"verificationRequired": true,
	})
}

// VerifyEmail handles GET /auth/verify/:token and logs the account in once
// the token checks out.
func (h *Handler) VerifyEmail(c *gin.Context) {
	info, err := h.service.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid verification token"})
		return
	}

	h.setSessionCookie(c, info.Token, info.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse(info))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	info, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailNotVerified) {
			c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	h.setSessionCookie(c, info.Token, info.ExpiresAt)
	c.JSON(http.StatusOK, sessionResponse(info))
}

// ProviderProfile handles GET /api/providers/:provider/profile.
func (h *Handler) ProviderProfile(c *gin.Context) {
	token := SessionTokenFromRequest(c)
	profile, err := h.service.ProviderProfile(c.Request.Context(), token, c.Param("provider"))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownProvider):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		case errors.Is(err, ErrCredentialsStale):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "provider credentials expired"})
		case errors.Is(err, ErrProviderTokens), errors.Is(err, ErrInvalidSession):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid-session"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "provider unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, profile)
}

type storeTokensRequest struct {
	AccessToken  string `json:"accessToken" binding:"required"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	ExpiresAt    int64  `json:"expiresAt"`
	Scope        string `json:"scope"`
}

// StoreTokens handles POST /api/providers/:provider/tokens for clients that
// completed a provider flow out of band, e.g. in a native app. The new
// credential session token is returned in the body only; the caller's
// session cookie, which authenticated this request, is left untouched.
func (h *Handler) StoreTokens(c *gin.Context) {
	var req storeTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		return
	}

	bundle := &oauth2.TokenBundle{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresIn:    req.ExpiresIn,
		Scope:        req.Scope,
		ObtainedAt:   time.Now(),
	}
	if req.ExpiresAt > 0 {
		bundle.ExpiresAtRaw = req.ExpiresAt
		bundle.ExpiresAt = time.Unix(req.ExpiresAt, 0)
	} else if req.ExpiresIn > 0 {
		bundle.ExpiresAt = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	info, err := h.service.StoreProviderTokens(c.Request.Context(), c.Param("provider"), bundle)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownProvider):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		case errors.Is(err, ErrMissingArtifact):
			c.JSON(http.StatusBadRequest, gin.H{"error": "accessToken is required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store tokens"})
		}
		return
	}

	c.JSON(http.StatusOK, sessionResponse(info))
}

// SessionTokenFromRequest extracts the session token, preferring the cookie
// over the header when both are present.
func SessionTokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookieName); err == nil && token != "" {
		return token
	}
	return c.GetHeader(HeaderSessionToken)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", h.secureCookies, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", h.secureCookies, true)
}

func sessionResponse(info *SessionInfo) gin.H {
	resp := gin.H{
		"sessionToken": info.Token,
		"kind":         info.Kind,
		"expiresAt":    info.ExpiresAt.UTC(),
	}
	if info.Provider != "" {
		resp["provider"] = info.Provider
	}
	if info.Identity != nil {
		resp["user"] = gin.H{
			"id":    info.Identity.UserID,
			"email": info.Identity.Email,
			"name":  info.Identity.Name,
		}
	}
	return resp
}

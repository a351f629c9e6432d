package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutriiq/internal/service/auth"
	"nutriiq/pkg/logger"
	"nutriiq/pkg/oauth2"
	"nutriiq/pkg/session"
)

type allowAllKeys struct{}

func (allowAllKeys) ValidateKey(ctx context.Context, key string) error { return nil }

func setupAuthMiddleware(t *testing.T) (*gin.Engine, *auth.Service, *session.InMemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := session.NewInMemoryStore()
	service := auth.NewService(auth.ServiceConfig{
		Attempts:     oauth2.NewInMemoryAttemptStorage(),
		Sessions:     sessions,
		Users:        auth.NewInMemoryUserRepository(),
		KeyValidator: allowAllKeys{},
		Logger:       logger.NewWithWriter("test", io.Discard),
	})

	r := gin.New()
	r.GET("/protected", RequireSession(service), func(c *gin.Context) {
		info, ok := SessionFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"kind": info.Kind})
	})
	return r, service, sessions
}

func TestRequireSession_Allows(t *testing.T) {
	router, service, _ := setupAuthMiddleware(t)

	info, err := service.LoginWithAPIKey(context.Background(), "sk-test")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: info.Token})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "api-key")
}

func TestRequireSession_RejectsMissing(t *testing.T) {
	router, _, _ := setupAuthMiddleware(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest("GET", "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "invalid-session")
}

func TestRequireSession_RejectsExpired(t *testing.T) {
	router, _, sessions := setupAuthMiddleware(t)

	require.NoError(t, sessions.Put(context.Background(), &session.Record{
		Token:     "stale",
		Kind:      session.KindAPIKey,
		CreatedAt: time.Now().Add(-5 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(auth.HeaderSessionToken, "stale")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "session-expired")
}

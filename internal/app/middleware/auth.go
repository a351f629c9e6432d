package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutriiq/internal/service/auth"
)

// ContextSessionKey is where the validated session lands in the gin context.
const ContextSessionKey = "session"

// RequireSession rejects requests without a live session. The cookie wins
// over the x-session-token header when both are present. The error code
// tells the client whether to re-login silently or surface an expiry notice.
func RequireSession(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.SessionTokenFromRequest(c)
		info, err := authService.ValidateSession(c.Request.Context(), token)
		if err != nil {
			code := "invalid-session"
			if errors.Is(err, auth.ErrSessionExpired) {
				code = "session-expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}

		c.Set(ContextSessionKey, info)
		c.Next()
	}
}

// SessionFromContext returns the session placed by RequireSession.
func SessionFromContext(c *gin.Context) (*auth.SessionInfo, bool) {
	value, ok := c.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	info, ok := value.(*auth.SessionInfo)
	return info, ok
}

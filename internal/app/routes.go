package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nutriiq/internal/app/middleware"
	"nutriiq/internal/service/auth"
)

func setupInfraRoutes(r *gin.Engine, metricsHandler http.Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsHandler))
}

func setupAuthRoutes(r *gin.Engine, handler *auth.Handler) {
	group := r.Group("/auth")
	{
		group.POST("", handler.APIKeyLogin)
		group.POST("/signup", handler.Signup)
		group.GET("/verify/:token", handler.VerifyEmail)
		group.POST("/login", handler.Login)
		group.POST("/logout", handler.Logout)
		group.GET("/session", handler.ValidateSession)
		group.POST("/session/validate", handler.SessionCheck)

		group.GET("/:provider", handler.Authorize)
		group.POST("/:provider", handler.TokenLogin)
		group.GET("/:provider/callback", handler.Callback)
	}
}

func setupAPIRoutes(r *gin.Engine, handler *auth.Handler, authService *auth.Service) {
	api := r.Group("/api")
	api.Use(middleware.RequireSession(authService))
	{
		api.GET("/providers/:provider/profile", handler.ProviderProfile)
		api.POST("/providers/:provider/tokens", handler.StoreTokens)
	}
}

// promHandler builds the default metrics handler. Split out so tests can
// pass their own registry.
func promHandler() http.Handler {
	return promhttp.Handler()
}

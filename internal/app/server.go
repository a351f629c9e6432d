package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutriiq/internal/app/middleware"
	"nutriiq/internal/cfg"
	"nutriiq/internal/service/auth"
	"nutriiq/pkg/logger"
)

// Server is the HTTP transport layer. All business logic lives in the auth
// service; the server wires routes, middleware, and lifecycle.
type Server struct {
	config     *cfg.Config
	httpServer *http.Server
	router     *gin.Engine
	logger     logger.Logger
}

func NewServer(config *cfg.Config, authService *auth.Service, authHandler *auth.Handler, log logger.Logger) *Server {
	if config.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{config: config, logger: log}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.CORSMiddleware(config.OAuth.ClientOrigin))

	setupInfraRoutes(r, promHandler())
	setupAuthRoutes(r, authHandler)
	setupAPIRoutes(r, authHandler, authService)

	s.router = r
	s.httpServer = &http.Server{
		Addr:         ":" + config.HTTPServer.Port,
		Handler:      r,
		ReadTimeout:  config.HTTPServer.ReadTimeout,
		WriteTimeout: config.HTTPServer.WriteTimeout,
	}
	return s
}

// Run starts the HTTP server and blocks until it shuts down.
func (s *Server) Run() error {
	s.logger.Info(context.Background(), "HTTP server listening",
		logger.Field{Key: "addr", Value: s.httpServer.Addr})

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

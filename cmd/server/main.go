package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nutriiq/internal/app"
	"nutriiq/internal/cfg"
	"nutriiq/internal/service/auth"
	"nutriiq/pkg/cache"
	"nutriiq/pkg/db"
	"nutriiq/pkg/logger"
	"nutriiq/pkg/oauth2"
	"nutriiq/pkg/session"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewZeroLog(config.AppEnv)
	ctx := context.Background()

	attempts, sessions := buildStores(ctx, config, log)
	users := buildUserRepository(ctx, config, log)

	metrics := auth.NewMetrics(prometheus.DefaultRegisterer)
	authService := auth.NewService(auth.ServiceConfig{
		Attempts:     attempts,
		Sessions:     sessions,
		Users:        users,
		KeyValidator: auth.NewOpenAIKeyValidator(config.OpenAIURL, nil),
		Logger:       log,
		Metrics:      metrics,
		AttemptTTL:   config.OAuth.AttemptTTL,
		SessionTTL:   config.OAuth.SessionTTL,
	})
	registerProviders(ctx, authService, config, log)

	sweeper := session.NewSweeper(config.OAuth.SweepInterval, log, sessions, attempts)
	sweeper.Start()
	defer sweeper.Stop()

	deliverer := auth.NewDeliverer(config.OAuth.ClientOrigin)
	handler := auth.NewHandler(authService, deliverer, config.Production())
	server := app.NewServer(config, authService, handler, log)

	go func() {
		if err := server.Run(); err != nil {
			log.Error(ctx, "server stopped", logger.Field{Key: "error", Value: err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown failed", logger.Field{Key: "error", Value: err.Error()})
	}
}

// buildStores picks Redis-backed attempt and session stores when Redis is
// configured, in-memory otherwise. Both serve the same interfaces.
func buildStores(ctx context.Context, config *cfg.Config, log logger.Logger) (oauth2.AttemptStorage, session.Store) {
	if config.Redis.Addr == "" {
		log.Info(ctx, "using in-memory stores")
		return oauth2.NewInMemoryAttemptStorage(), session.NewInMemoryStore()
	}

	redisCache := cache.NewRedisCache(config.Redis.Addr, config.Redis.Password)
	log.Info(ctx, "using redis stores", logger.Field{Key: "addr", Value: config.Redis.Addr})
	return oauth2.NewRedisAttemptStorage(redisCache), session.NewRedisStore(redisCache)
}

func buildUserRepository(ctx context.Context, config *cfg.Config, log logger.Logger) auth.UserRepository {
	if config.Postgres.DSN == "" {
		log.Info(ctx, "using in-memory user repository")
		return auth.NewInMemoryUserRepository()
	}

	database, err := db.NewPostgres(config.Postgres.DSN, db.ConnectionConfig{
		MaxOpenConns: config.Postgres.MaxOpenConns,
		MaxIdleConns: config.Postgres.MaxIdleConns,
	})
	if err != nil {
		panic("failed to connect to postgres: " + err.Error())
	}
	log.Info(ctx, "connected to postgres")
	return auth.NewPostgresUserRepository(database)
}

// registerProviders wires every provider that has credentials configured.
// Unconfigured providers are skipped so a deployment can enable a subset.
func registerProviders(ctx context.Context, authService *auth.Service, config *cfg.Config, log logger.Logger) {
	oc := config.OAuth
	client := &http.Client{Timeout: oc.ProviderTimeout}

	if oc.Fitbit.Enabled() {
		authService.RegisterProvider(oauth2.NewFitbitProvider(oauth2.FitbitConfig{
			ClientID:     oc.Fitbit.ClientID,
			ClientSecret: oc.Fitbit.ClientSecret,
			RedirectURL:  oc.Fitbit.RedirectURL,
			HTTPClient:   client,
		}))
	}
	if oc.Strava.Enabled() {
		authService.RegisterProvider(oauth2.NewStravaProvider(oauth2.StravaConfig{
			ClientID:     oc.Strava.ClientID,
			ClientSecret: oc.Strava.ClientSecret,
			RedirectURL:  oc.Strava.RedirectURL,
			HTTPClient:   client,
		}))
	}
	if oc.X.Enabled() {
		authService.RegisterProvider(oauth2.NewXProvider(oauth2.XConfig{
			ClientID:     oc.X.ClientID,
			ClientSecret: oc.X.ClientSecret,
			RedirectURL:  oc.X.RedirectURL,
			HTTPClient:   client,
		}))
	}
	if oc.Google.Enabled() {
		authService.RegisterProvider(oauth2.NewGoogleProvider(oauth2.GoogleConfig{
			ClientID:   oc.Google.ClientID,
			HTTPClient: client,
		}))
	}
	if oc.Facebook.Enabled() {
		authService.RegisterProvider(oauth2.NewFacebookProvider(oauth2.FacebookConfig{
			AppID:      oc.Facebook.ClientID,
			AppSecret:  oc.Facebook.ClientSecret,
			HTTPClient: client,
		}))
	}
	if oc.Apple.Enabled() {
		apple, err := oauth2.NewAppleProvider(ctx, oauth2.AppleConfig{
			ClientID: oc.Apple.ClientID,
		})
		if err != nil {
			log.Error(ctx, "apple provider unavailable",
				logger.Field{Key: "error", Value: err.Error()})
		} else {
			authService.RegisterProvider(apple)
		}
	}
}

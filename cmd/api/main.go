package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/audit"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/handler"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/middleware"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/repository"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/session"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/views"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/catalog"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/permissions"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/ports"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/core/services"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

type repositories interface {
	ports.UserRepository
	ports.CustomerRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := permissions.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("permission tables are inconsistent")
	}

	ctx := context.Background()

	// The public half is checked against the private key while loading.
	privateKey, _, ephemeral, err := cfg.SigningKeys()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load signing keys")
	}
	if ephemeral {
		logging.Warn().Msg("using an ephemeral signing key; sessions will not survive a restart")
	}

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open database")
		}
		defer db.Close()
		logging.Info().Msg("database connection initialized - circuit breaker will validate on first operation")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("redis not reachable yet, sign-in will fail until it is")
	} else {
		logging.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	}

	var repo repositories
	switch cfg.UserSource {
	case config.UserSourcePostgres:
		repo = repository.NewSQLRepository(db)
	default:
		repo = repository.NewSeedRepository()
	}

	var auditSink ports.AuditSink
	if db != nil {
		auditSink = audit.NewOutboxSink(db)
	} else {
		logging.Warn().Msg("no database configured, audit entries go to the log only")
		auditSink = audit.NewLogSink(logging.Logger())
	}

	sessions := session.NewRedisStore(redisClient)
	authService := services.NewAuthService(repo, sessions, privateKey, cfg.Session.TTL)
	impersonationService := services.NewImpersonationService(sessions, repo, auditSink)

	renderer, err := views.NewRenderer()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load templates")
	}

	cookie := handler.SessionCookie{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}

	checks := []handler.NamedCheck{{
		Name:    "redis",
		Message: "Cannot connect to Redis",
		Check:   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	}}
	if db != nil {
		checks = append(checks, handler.NamedCheck{
			Name:    "database",
			Message: "Cannot connect to database",
			Check:   db.PingContext,
		})
	}

	router := handler.NewRouter(handler.RouterConfig{
		Guard:          middleware.NewRouteGuard(authService, cfg.Session.CookieName),
		Auth:           handler.NewAuthHandler(authService, renderer, cookie),
		Impersonation:  handler.NewImpersonationHandler(impersonationService, authService, repo, renderer, cookie),
		Portal:         handler.NewPortalHandler(catalog.NewSeedCatalog(), repo, impersonationService, renderer),
		Health:         handler.NewHealthHandler(cfg.Version, checks...),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SignInRequests: cfg.RateLimit.SignInRequests,
		SignInWindow:   cfg.RateLimit.SignInWindow,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logging.Info().Str("port", cfg.Port).Str("user_source", cfg.UserSource).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("received signal, initiating shutdown")
	case err := <-errChan:
		logging.Error().Err(err).Msg("server error, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("error shutting down server")
	}
	logging.Info().Msg("shutdown complete")
}

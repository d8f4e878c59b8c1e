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

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/audit"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/messaging"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/adapters/outbox"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/config"
	"github.com/AchilleasB/partner-portal/identity-access-service/internal/logging"
)

func main() {
	cfg, err := config.LoadRelayConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("relay: failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel})
	logging.Info().Str("queue", cfg.AuditQueueName).Msg("starting audit outbox relay")

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("relay: failed to open database")
	}
	defer db.Close()

	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.AuditQueueName)
	if err != nil {
		logging.Fatal().Err(err).Msg("relay: failed to connect to RabbitMQ")
	}
	defer broker.Close()
	logging.Info().Msg("relay: connected to RabbitMQ")

	worker := outbox.NewRelay(db, cfg.DatabaseURL, audit.EventType, broker)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, worker.IsHealthy() && broker.IsConnected())
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, worker.IsReady())
	})
	r.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info().Str("addr", cfg.HealthAddr).Msg("relay: starting health server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("relay: health server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("relay: received signal, initiating shutdown")
	case err := <-errChan:
		logging.Error().Err(err).Msg("relay: fatal error, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("relay: error shutting down health server")
	}
	logging.Info().Msg("relay: shutdown complete")
}

func writeStatus(w http.ResponseWriter, up bool) {
	status, code := "UP", http.StatusOK
	if !up {
		status, code = "DOWN", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":    status,
		"component": "audit-relay",
	})
}

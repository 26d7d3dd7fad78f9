// Package main is the entry point of the sigfarma ledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sigfarma/internal/app"
	"sigfarma/internal/domain/auth"
	"sigfarma/internal/domain/expiry"
	"sigfarma/internal/domain/ledger"
	v1 "sigfarma/internal/infrastructure/http/v1"
	"sigfarma/internal/infrastructure/http/v1/handlers"
	"sigfarma/internal/infrastructure/messaging/kafka"
	"sigfarma/internal/infrastructure/storage/memory"
	"sigfarma/internal/infrastructure/storage/postgres"
	"sigfarma/pkg/logger"
	"sigfarma/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	cfg := loadConfig()

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.development(),
		Service:     "sigfarma-api",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "sigfarma-api",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalw("failed to set up tracing", "error", err)
	}

	classifier, err := expiry.NewClassifier(cfg.ExpiryCriticalMonths, cfg.ExpiryWarningMonths)
	if err != nil {
		log.Fatalw("invalid expiry thresholds", "error", err)
	}

	routerCfg := v1.RouterConfig{
		Logger:          log,
		Debug:           cfg.development(),
		ReadinessChecks: map[string]handlers.ReadinessCheck{},
	}

	var backend app.Backend
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is empty, running on the in-memory store")
		store := memory.New()
		backend = app.MemoryBackend(store)
		routerCfg.ReadinessChecks["store"] = func(context.Context) error { return nil }

		if len(cfg.KafkaBrokers) > 0 {
			go relayMemoryOutbox(ctx, store, cfg, log)
		}
	} else {
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
		poolCfg.AcquireTimeout = cfg.DBAcquireTimeout

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Infow("database connection established", "max_conns", poolCfg.MaxConns)

		txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)
		if backend, err = app.PostgresBackend(txm); err != nil {
			log.Fatalw("failed to build storage backend", "error", err)
		}

		routerCfg.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
		routerCfg.ReadinessChecks["database"] = pool.Ping

		go logPoolStats(ctx, pool)
	}

	routerCfg.Services = app.New(backend, ledger.WithClassifier(classifier))

	if cfg.JWTSecret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
		routerCfg.RequireAuth = cfg.AuthRequired
	} else {
		log.Warn("JWT_SECRET is empty, the API accepts anonymous requests")
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warnw("tracer shutdown failed", "error", err)
	}
	_ = log.Sync()

	log.Info("server stopped")
}

// relayMemoryOutbox ships events of the in-memory store to Kafka. With
// PostgreSQL the outbox is relayed by cmd/worker instead.
func relayMemoryOutbox(ctx context.Context, store *memory.Store, cfg Config, log *logger.Logger) {
	writer := kafka.NewWriter(kafka.Config{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
	handler := kafka.NewHandler(writer)
	defer handler.Close()

	log = log.WithComponent("outbox")
	ticker := time.NewTicker(cfg.OutboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Relay(ctx, handler)
			if err != nil {
				log.Warnw("event relay failed", "delivered", n, "error", err)
			} else if n > 0 {
				log.Debugw("events relayed", "count", n)
			}
		}
	}
}

func logPoolStats(ctx context.Context, pool *postgres.Pool) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
		}
	}
}

// Package main is the outbox relay worker: it ships ledger events from
// sys_outbox to Kafka and runs periodic maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sigfarma/internal/infrastructure/messaging/kafka"
	"sigfarma/internal/infrastructure/storage/postgres"
	"sigfarma/pkg/logger"
	"sigfarma/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
		Service:     "sigfarma-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "sigfarma-worker",
		ServiceVersion: "0.1.0",
		Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Insecure:       true,
	})
	if err != nil {
		log.Fatalw("failed to set up tracing", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 5))
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	brokers := strings.Split(mustEnv("KAFKA_BROKERS"), ",")
	writer := kafka.NewWriter(kafka.Config{
		Brokers: brokers,
		Topic:   getEnv("KAFKA_TOPIC", "sigfarma.ledger"),
	})
	handler := kafka.NewHandler(writer)
	defer handler.Close()

	txm := postgres.NewTxManager(pool)
	w := &Worker{
		relay:        postgres.NewOutboxRelay(txm, getEnvInt("OUTBOX_BATCH_SIZE", 100), handler),
		idempotency:  postgres.NewIdempotencyStore(txm, 0),
		pollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		maintenance:  getEnvDuration("MAINTENANCE_INTERVAL", time.Hour),
		log:          log.WithComponent("worker"),
	}

	log.Infow("worker starting", "brokers", brokers, "poll_interval", w.pollInterval)
	w.Run(ctx)
	log.Info("worker stopped")
}

// Worker runs the outbox relay and the housekeeping jobs until its context ends.
type Worker struct {
	relay        *postgres.OutboxRelay
	idempotency  *postgres.IdempotencyStore
	pollInterval time.Duration
	maintenance  time.Duration
	log          *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.relay.Run(ctx, w.pollInterval)
	}()
	go func() {
		defer wg.Done()
		w.housekeeping(ctx)
	}()
	wg.Wait()
}

func (w *Worker) housekeeping(ctx context.Context) {
	ticker := time.NewTicker(w.maintenance)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := w.relay.MoveToDLQ(ctx); err != nil {
			w.log.Errorw("dead-letter move failed", "error", err)
		} else if n > 0 {
			w.log.Warnw("outbox messages dead-lettered", "count", n)
		}

		if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
			w.log.Errorw("idempotency cleanup failed", "error", err)
		} else if n > 0 {
			w.log.Infow("expired idempotency keys removed", "count", n)
		}

		if n, err := w.relay.PendingCount(ctx); err == nil {
			w.log.Infow("outbox backlog", "pending", n)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

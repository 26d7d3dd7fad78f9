package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	// DatabaseURL selects the storage backend; empty runs on the in-memory store.
	DatabaseURL        string
	DBMaxConns         int
	DBAcquireTimeout   time.Duration
	DBStatementTimeout time.Duration

	JWTSecret    string
	AuthRequired bool

	IdempotencyTTL time.Duration

	ExpiryCriticalMonths int
	ExpiryWarningMonths  int

	// Used only by the in-memory backend, which relays events itself.
	KafkaBrokers       []string
	KafkaTopic         string
	OutboxPollInterval time.Duration

	OTLPEndpoint string
	OTLPInsecure bool
}

func loadConfig() Config {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	return Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		DBMaxConns:           getEnvInt("DB_MAX_CONNS", 25),
		DBAcquireTimeout:     getEnvDuration("DB_ACQUIRE_TIMEOUT", 5*time.Second),
		DBStatementTimeout:   getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		AuthRequired:         getEnvBool("AUTH_REQUIRED", true),
		IdempotencyTTL:       getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		ExpiryCriticalMonths: getEnvInt("EXPIRY_CRITICAL_MONTHS", 6),
		ExpiryWarningMonths:  getEnvInt("EXPIRY_WARNING_MONTHS", 12),
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:           getEnv("KAFKA_TOPIC", "sigfarma.ledger"),
		OutboxPollInterval:   getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OTLPEndpoint:         getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:         getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}
}

func (c Config) development() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

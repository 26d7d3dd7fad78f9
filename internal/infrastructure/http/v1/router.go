// Package v1 provides HTTP API version 1 of the ledger.
package v1

import (
	"github.com/gin-gonic/gin"

	"sigfarma/internal/app"
	"sigfarma/internal/infrastructure/http/v1/handlers"
	"sigfarma/internal/infrastructure/http/v1/middleware"
	"sigfarma/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the ledger and its processors
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator validates bearer tokens. Nil leaves the API anonymous.
	JWTValidator middleware.JWTValidator

	// RequireAuth rejects requests without a valid token
	RequireAuth bool

	// Idempotency stores Idempotency-Key responses. Nil disables replay.
	Idempotency middleware.IdempotencyStore

	// ReadinessChecks are run by GET /ready
	ReadinessChecks map[string]handlers.ReadinessCheck

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// ErrorHandler wraps Recovery so a recovered panic is still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	health := handlers.NewHealthHandler(cfg.ReadinessChecks)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)

	api := router.Group("/api/v1")
	switch {
	case cfg.JWTValidator != nil && cfg.RequireAuth:
		api.Use(middleware.Auth(cfg.JWTValidator))
	case cfg.JWTValidator != nil:
		api.Use(middleware.OptionalAuth(cfg.JWTValidator))
	}
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	registerRoutes(api, cfg.Services)
	return router
}

func registerRoutes(api *gin.RouterGroup, svc *app.Services) {
	base := handlers.NewBaseHandler()

	RegisterDocumentRoutes(api.Group("/sales"), handlers.NewSaleHandler(base, svc.Sales))
	RegisterDocumentRoutes(api.Group("/returns"), handlers.NewReturnHandler(base, svc.Returns))
	RegisterDocumentRoutes(api.Group("/adjustments"), handlers.NewAdjustmentHandler(base, svc.Adjustments))
	RegisterDocumentRoutes(api.Group("/receivings"), handlers.NewReceivingHandler(base, svc.Receivings))

	ledgerHandler := handlers.NewLedgerHandler(base, svc.Ledger)
	api.GET("/batches", ledgerHandler.ListBatches)
	api.GET("/batches/:id", ledgerHandler.GetBatch)
	api.GET("/products/:id/ledger", ledgerHandler.Verify)

	if svc.AuditLog != nil {
		api.GET("/documents/:id/history", handlers.NewAuditHandler(base, svc.AuditLog).History)
	}
}

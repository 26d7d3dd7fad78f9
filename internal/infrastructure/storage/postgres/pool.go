// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sigfarma/pkg/logger"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	DSN             string
	ApplicationName string

	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration

	// AcquireTimeout bounds the wait for a free connection; exceeding it is a transient error.
	AcquireTimeout time.Duration
}

// DefaultPoolConfig returns the settings used by the server and worker.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		ApplicationName:   "sigfarma",
		MaxConns:          25,
		MinConns:          2,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		AcquireTimeout:    5 * time.Second,
	}
}

// Pool is a pgx pool carrying the acquire timeout shared by its transaction managers.
type Pool struct {
	*pgxpool.Pool

	acquireTimeout time.Duration
}

// NewPool connects and pings the database. Sessions run in UTC so expiration
// dates and document timestamps compare the same way as in memory mode.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 && cfg.MinConns <= pc.MaxConns {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod

	params := pc.ConnConfig.RuntimeParams
	params["timezone"] = "UTC"
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}

	inner, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	p := &Pool{Pool: inner, acquireTimeout: cfg.AcquireTimeout}
	if err := p.Ping(ctx); err != nil {
		inner.Close()
		return nil, err
	}
	return p, nil
}

// Ping checks connectivity within the acquire timeout. Used as the readiness probe.
func (p *Pool) Ping(ctx context.Context) error {
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	if err := p.Pool.Ping(ctx); err != nil {
		return classify(fmt.Errorf("ping database: %w", err))
	}
	return nil
}

// Close closes all connections in the pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// LogStats writes a snapshot of pool usage. Waits on empty pools show up as
// empty_acquire growing between snapshots.
func (p *Pool) LogStats(ctx context.Context) {
	st := p.Stat()
	logger.Info(ctx, "database pool stats",
		"total", st.TotalConns(),
		"acquired", st.AcquiredConns(),
		"idle", st.IdleConns(),
		"max", st.MaxConns(),
		"acquire_count", st.AcquireCount(),
		"empty_acquire", st.EmptyAcquireCount(),
		"canceled_acquire", st.CanceledAcquireCount(),
		"acquire_wait", st.AcquireDuration(),
	)
}

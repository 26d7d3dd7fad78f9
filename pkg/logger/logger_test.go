package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "sigfarma/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestWithContext_RequestFields(t *testing.T) {
	l, logs := observed()

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t-1", RequestID: "req-9"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "cashier-7"})
	l.WithContext(ctx).Infow("sale created", "number", "SL-2026-00001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "cashier-7", fields["user_id"])
	assert.Equal(t, "SL-2026-00001", fields["number"])
}

func TestWithContext_Empty(t *testing.T) {
	l, _ := observed()
	assert.Same(t, l, l.WithContext(context.Background()))
}

func TestPackageFunctions_UseDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	l, logs := observed()
	SetDefault(l.WithComponent("ledger"))
	Warn(context.Background(), "low stock", "product_id", "p-1")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "ledger", entry.ContextMap()["component"])
}

// Package logger is the zap-based structured logger shared by the server,
// worker and seed commands.
package logger

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "sigfarma/internal/core/context"
)

// Logger is a sugared zap logger that can pick up request identity from a context.
type Logger struct {
	*zap.SugaredLogger
}

type Config struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Development switches to the colored console encoder.
	Development bool
	// Service, when set, is attached to every entry.
	Service string
}

// New builds a logger writing to stderr (development) or JSON on stdout.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stdout"}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	if cfg.Service != "" {
		z = z.With(zap.String("service", cfg.Service))
	}
	return &Logger{z.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

var process atomic.Pointer[Logger]

// Default returns the logger installed by SetDefault, or an info-level JSON logger.
func Default() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	l, err := New(Config{Level: "info"})
	if err != nil {
		l = NewNop()
	}
	process.CompareAndSwap(nil, l)
	return process.Load()
}

// SetDefault installs l as the logger behind the package-level functions.
func SetDefault(l *Logger) { process.Store(l) }

// WithContext adds the request, trace and caller ids found in ctx.
// Outside an HTTP request the OpenTelemetry span, if any, supplies the trace id.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var fields []any
	if tc := appctx.GetTrace(ctx); tc != nil {
		fields = append(fields, "trace_id", tc.TraceID, "request_id", tc.RequestID)
	} else if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}
	if uid := appctx.GetUserID(ctx); uid != "" {
		fields = append(fields, "user_id", uid)
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(fields...)}
}

// WithComponent tags entries with the subsystem that wrote them.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

func Debug(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Debugw(msg, kv...)
}

func Info(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Infow(msg, kv...)
}

func Warn(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Warnw(msg, kv...)
}

func Error(ctx context.Context, msg string, kv ...any) {
	Default().WithContext(ctx).Errorw(msg, kv...)
}

// Package context carries the caller and trace identity of a request.
package context

import "context"

// UserContext identifies the caller. The ledger records it on documents and
// audit entries; it never drives stock decisions.
type UserContext struct {
	UserID    string
	Email     string
	Roles     []string
	SessionID string
}

// TraceContext correlates logs, audit entries and the HTTP response.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type (
	userKey  struct{}
	traceKey struct{}
)

func value[T any](ctx context.Context, key any) *T {
	v, _ := ctx.Value(key).(*T)
	return v
}

func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the caller, or nil for anonymous and background calls.
func GetUser(ctx context.Context) *UserContext { return value[UserContext](ctx, userKey{}) }

func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// ActorOrSystem is the id written to created_by columns.
func ActorOrSystem(ctx context.Context) string {
	if uid := GetUserID(ctx); uid != "" {
		return uid
	}
	return "system"
}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

func GetTrace(ctx context.Context) *TraceContext { return value[TraceContext](ctx, traceKey{}) }

// GetRequestID returns the request id, empty outside an HTTP request.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

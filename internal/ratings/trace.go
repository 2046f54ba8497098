package ratings

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// WithTraceID returns a copy of ctx carrying the request's trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceID returns the trace ID in ctx, or a new one.
func TraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

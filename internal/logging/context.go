package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
)

// ContextWithCorrelationID adds a correlation ID to the context.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey).(string)
	return id, ok
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from the context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok
}

// GenerateCorrelationID returns a new "corr_" prefixed id.
func GenerateCorrelationID() string {
	return "corr_" + uuid.NewString()
}

// GenerateRequestID returns a new "req_" prefixed id.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// EnsureIDs adds a fresh correlation and request id to ctx when missing.
// An existing correlation id is kept so one can span several requests.
func EnsureIDs(ctx context.Context) context.Context {
	if _, ok := CorrelationIDFromContext(ctx); !ok {
		ctx = ContextWithCorrelationID(ctx, GenerateCorrelationID())
	}
	if _, ok := RequestIDFromContext(ctx); !ok {
		ctx = ContextWithRequestID(ctx, GenerateRequestID())
	}
	return ctx
}

// Package trace carries request identifiers (X-Request-ID and W3C trace context)
// through context.Context so outbound REST calls can propagate them.
package trace

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

type identityKey struct{}

// Identity groups the identifiers of the request being served.
// Empty fields are unset.
type Identity struct {
	RequestID   string
	TraceParent string
	TraceState  string
}

// FromContext returns the identity stored in ctx, or the zero Identity.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// NewContext stores id in ctx, replacing any previous identity.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func update(ctx context.Context, fn func(*Identity)) context.Context {
	id := FromContext(ctx)
	fn(&id)
	return NewContext(ctx, id)
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return update(ctx, func(id *Identity) { id.RequestID = traceID })
}

// IDFromContext returns a trace ID from context if present
func IDFromContext(ctx context.Context) (string, bool) {
	v := FromContext(ctx).RequestID
	return v, v != ""
}

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string {
	if traceID, ok := IDFromContext(ctx); ok {
		return traceID
	}
	return uuid.NewString()
}

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return update(ctx, func(id *Identity) { id.TraceParent = traceParent })
}

// ParentFromContext returns a traceparent from context if present
func ParentFromContext(ctx context.Context) (string, bool) {
	v := FromContext(ctx).TraceParent
	return v, v != ""
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return update(ctx, func(id *Identity) { id.TraceState = traceState })
}

// StateFromContext returns a tracestate from context if present
func StateFromContext(ctx context.Context) (string, bool) {
	v := FromContext(ctx).TraceState
	return v, v != ""
}

// GenerateTraceParent creates a sampled W3C traceparent value,
// "00-<32 hex trace-id>-<16 hex span-id>-01". Random UUID bytes are never all zero.
func GenerateTraceParent() string {
	traceID := uuid.New()
	spanID := uuid.New()
	return "00-" + hex.EncodeToString(traceID[:]) + "-" + hex.EncodeToString(spanID[:8]) + "-01"
}

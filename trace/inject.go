package trace

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"
)

// HeaderAccessor abstracts a header carrier so injection works for net/http
// headers as well as other transports.
type HeaderAccessor interface {
	Get(key string) any
	Set(key string, value any)
}

// InjectMode controls how existing headers are treated during injection.
type InjectMode int

const (
	// InjectPreserve keeps header values that are already present.
	InjectPreserve InjectMode = iota
	// InjectOverwrite replaces header values with the ones from context.
	InjectOverwrite
)

// InjectOptions configures InjectIntoHeadersWithOptions.
type InjectOptions struct {
	Mode InjectMode
	// GenerateParent creates a traceparent when neither the headers nor the context carry one.
	GenerateParent bool
}

// InjectIntoHeaders writes trace headers from ctx into h, preserving existing values.
func InjectIntoHeaders(ctx context.Context, h nethttp.Header) {
	InjectIntoHeadersWithOptions(ctx, HTTPHeaders(h), InjectOptions{Mode: InjectPreserve})
}

// InjectIntoHeadersWithOptions writes X-Request-ID, traceparent and tracestate into acc.
// When no trace ID is in the context, one is derived from the traceparent trace-id,
// falling back to a generated UUID.
func InjectIntoHeadersWithOptions(ctx context.Context, acc HeaderAccessor, opts InjectOptions) {
	if acc == nil {
		return
	}

	traceParent, hasParent := ParentFromContext(ctx)
	if !hasParent && opts.GenerateParent && headerValue(acc, HeaderTraceParent) == "" {
		traceParent = GenerateTraceParent()
		hasParent = true
	}
	if hasParent {
		setHeader(acc, HeaderTraceParent, traceParent, opts.Mode)
	}

	if ts, ok := StateFromContext(ctx); ok {
		setHeader(acc, HeaderTraceState, ts, opts.Mode)
	}

	traceID, ok := IDFromContext(ctx)
	if !ok {
		if id := traceIDFromParent(headerValue(acc, HeaderTraceParent)); id != "" {
			traceID = id
		} else {
			traceID = EnsureTraceID(ctx)
		}
	}
	setHeader(acc, HeaderXRequestID, traceID, opts.Mode)
}

func setHeader(acc HeaderAccessor, key, value string, mode InjectMode) {
	if mode == InjectPreserve && headerValue(acc, key) != "" {
		return
	}
	acc.Set(key, value)
}

func headerValue(acc HeaderAccessor, key string) string {
	return safeToString(acc.Get(key))
}

// traceIDFromParent extracts the 32-hex trace-id segment of a traceparent value.
func traceIDFromParent(tp string) string {
	parts := strings.Split(tp, "-")
	if len(parts) != 4 || len(parts[1]) != 32 {
		return ""
	}
	return strings.ToLower(parts[1])
}

func safeToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

type httpHeaderCarrier struct{ h nethttp.Header }

func (c *httpHeaderCarrier) Get(key string) any { return c.h.Get(key) }

func (c *httpHeaderCarrier) Set(key string, value any) { c.h.Set(key, safeToString(value)) }

// HTTPHeaders adapts a net/http header map to HeaderAccessor.
func HTTPHeaders(h nethttp.Header) HeaderAccessor {
	return &httpHeaderCarrier{h: h}
}

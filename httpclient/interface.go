package httpclient

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	resttrace "github.com/gaborage/go-bricks-rest/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = resttrace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = resttrace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = resttrace.HeaderTraceState
	// HeaderAuthorization carries the outbound credentials
	HeaderAuthorization = "Authorization"
	// HeaderContentType carries the payload media type
	HeaderContentType = "Content-Type"
)

// Client defines the REST client interface for invoking downstream services.
//
// Every method blocks until the call completes, the per-call timeout elapses
// or ctx is canceled. Implementations are safe for concurrent use.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request describes a single outbound call.
//
// The zero value of every flag selects the common behavior: error statuses are
// returned as errors, POST, PUT, PATCH and DELETE forward the inbound bearer
// token when Token is empty, GET sends no token, and no retries are attempted.
type Request struct {
	URL string
	// Token is sent as "<AuthScheme> <Token>" in the Authorization header.
	Token       string
	AuthScheme  AuthScheme
	ContentType ContentType
	// Data is the payload. See ContentType for the accepted Go types.
	Data    any
	Headers map[string]string
	Auth    *BasicAuth
	// Resource names the circuit breaker the call counts against.
	// Empty groups calls by method and downstream host.
	Resource string

	// AllowErrorStatus returns 4xx/5xx responses with a nil error.
	AllowErrorStatus bool
	// RetryOnFailure routes GET calls through the client's RetryPolicy.
	RetryOnFailure bool
	// Skip404Logging suppresses the error log line for GET 404 responses.
	Skip404Logging bool
	// SkipTokenGeneration disables forwarding the inbound bearer token.
	SkipTokenGeneration bool
	// ForwardInboundToken lets GET forward the inbound bearer token.
	// Ignored by the other verbs, which forward it by default.
	ForwardInboundToken bool
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	Timeout              time.Duration
	Retry                RetryPolicy
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// EnableW3CTrace generates a traceparent when none is available
	EnableW3CTrace bool
	// CircuitBreaker enables a breaker per method and downstream host when non-nil
	CircuitBreaker *CircuitBreakerSettings
	// RateLimit throttles outbound calls when non-nil
	RateLimit *RateLimitSettings

	Transport      nethttp.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// RateLimitSettings configures the outbound token bucket.
type RateLimitSettings struct {
	RequestsPerSecond float64
	Burst             int
}

// Trace ID utility functions

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return resttrace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return resttrace.IDFromContext(ctx) }

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return resttrace.EnsureTraceID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return resttrace.WithTraceParent(ctx, traceParent)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return resttrace.WithTraceState(ctx, traceState)
}

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers.
// The client already propagates X-Request-ID; use this for explicit control.
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}

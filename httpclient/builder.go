package httpclient

import (
	"maps"
	nethttp "net/http"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-bricks-rest/config"
	"github.com/gaborage/go-bricks-rest/logger"
)

// NewClient creates a new REST client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// NewFromConfig creates a REST client from the "rest" configuration section.
func NewFromConfig(cfg *config.RestConfig, log logger.Logger) Client {
	b := NewBuilder(log).
		WithTimeout(cfg.Timeout).
		WithPayloadLogging(cfg.LogPayloads, cfg.MaxPayloadLogBytes).
		WithRetryPolicy(RetryPolicy{
			MaxRetries:      cfg.Retry.Max,
			BackoffFactor:   cfg.Retry.Backoff,
			MaxBackoff:      cfg.Retry.MaxBackoff,
			StatusForcelist: cfg.Retry.Statuses,
		}).
		WithW3CTrace(cfg.W3CTrace)

	if cfg.TraceIDHeader != "" {
		b = b.WithTraceIDHeader(cfg.TraceIDHeader)
	}
	for key, value := range cfg.Headers {
		b = b.WithDefaultHeader(key, value)
	}
	if cfg.RateLimit.RPS > 0 {
		b = b.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if cb := cfg.CircuitBreaker; cb.Enabled {
		b = b.WithCircuitBreaker(CircuitBreakerSettings{
			MaxRequests:         cb.MaxRequests,
			Interval:            cb.Interval,
			Timeout:             cb.Timeout,
			ConsecutiveFailures: cb.Failures,
		})
	}
	return b.Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config *Config
	logger logger.Logger
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			Retry:                DefaultRetryPolicy(),
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   defaultMaxPayloadLogBytes,
			TraceIDHeader:        HeaderXRequestID,
		},
		logger: log,
	}
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	if timeout > 0 {
		b.config.Timeout = timeout
	}
	return b
}

// WithRetryPolicy replaces the policy applied to GET calls flagged with RetryOnFailure
func (b *Builder) WithRetryPolicy(policy RetryPolicy) *Builder {
	b.config.Retry = policy
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithPayloadLogging toggles debug logging of headers and body previews
func (b *Builder) WithPayloadLogging(enabled bool, maxBytes int) *Builder {
	b.config.LogPayloads = enabled
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceIDHeader sets the header that carries the request ID
func (b *Builder) WithTraceIDHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithW3CTrace generates a traceparent for calls made outside a traced request
func (b *Builder) WithW3CTrace(enabled bool) *Builder {
	b.config.EnableW3CTrace = enabled
	return b
}

// WithCircuitBreaker enables a circuit breaker per method and downstream host
func (b *Builder) WithCircuitBreaker(settings CircuitBreakerSettings) *Builder {
	b.config.CircuitBreaker = &settings
	return b
}

// WithRateLimit caps outbound calls to rps with the given burst
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	b.config.RateLimit = &RateLimitSettings{RequestsPerSecond: rps, Burst: burst}
	return b
}

// WithTransport replaces the underlying round tripper (default: a pooled transport per client)
func (b *Builder) WithTransport(rt nethttp.RoundTripper) *Builder {
	b.config.Transport = rt
	return b
}

// WithTracerProvider sets the provider used for client spans (default: global)
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.config.TracerProvider = tp
	return b
}

// WithMeterProvider sets the provider used for client metrics (default: global)
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.config.MeterProvider = mp
	return b
}

// Build creates the REST client with the configured options.
// The configuration is copied so later builder calls do not affect the client.
func (b *Builder) Build() Client {
	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RequestInterceptors = slices.Clone(b.config.RequestInterceptors)
	cfg.ResponseInterceptors = slices.Clone(b.config.ResponseInterceptors)
	cfg.Retry.StatusForcelist = slices.Clone(b.config.Retry.StatusForcelist)

	// Each client owns its connection pool.
	transport := cfg.Transport
	if transport == nil {
		transport = cleanhttp.DefaultPooledTransport()
	}
	httpClient := &nethttp.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	c := &client{
		httpClient:           httpClient,
		telemetry:            newTelemetry(cfg.TracerProvider, cfg.MeterProvider),
		validate:             validator.New(),
		logger:               b.logger,
		config:               &cfg,
		requestInterceptors:  cfg.RequestInterceptors,
		responseInterceptors: cfg.ResponseInterceptors,
	}
	c.retryClient = newRetryClient(httpClient, cfg.Retry, b.logger, func(req *nethttp.Request, _ int) {
		c.telemetry.retry(req.Context(), req.Method)
	})

	if cfg.CircuitBreaker != nil {
		c.breakers = newBreakers(*cfg.CircuitBreaker, b.logger)
	}
	if rl := cfg.RateLimit; rl != nil && rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}
	return c
}

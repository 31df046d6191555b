package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config is the "observability" configuration section.
type Config struct {
	// Enabled controls whether telemetry is exported. When false the provider is a no-op.
	Enabled     bool          `koanf:"enabled" mapstructure:"enabled"`
	Service     ServiceConfig `koanf:"service" mapstructure:"service"`
	Environment string        `koanf:"environment" mapstructure:"environment"`
	Trace       TraceConfig   `koanf:"trace" mapstructure:"trace"`
	Metrics     MetricsConfig `koanf:"metrics" mapstructure:"metrics"`
}

// ServiceConfig identifies the service in traces and metrics.
type ServiceConfig struct {
	Name    string `koanf:"name" mapstructure:"name"`
	Version string `koanf:"version" mapstructure:"version"`
}

// TraceConfig configures span export.
type TraceConfig struct {
	// Enabled defaults to true when observability is enabled. Nil means unset.
	Enabled *bool `koanf:"enabled" mapstructure:"enabled"`

	// Endpoint is "stdout", host:port for gRPC, or a URL for HTTP.
	Endpoint string            `koanf:"endpoint" mapstructure:"endpoint"`
	Protocol string            `koanf:"protocol" mapstructure:"protocol"`
	Insecure bool              `koanf:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `koanf:"headers" mapstructure:"headers"`

	// SampleRate is the ratio of traces recorded, in [0, 1]. Nil means 1.0.
	SampleRate *float64 `koanf:"samplerate" mapstructure:"samplerate"`

	BatchTimeout  time.Duration `koanf:"batchtimeout" mapstructure:"batchtimeout"`
	ExportTimeout time.Duration `koanf:"exporttimeout" mapstructure:"exporttimeout"`
	MaxQueueSize  int           `koanf:"maxqueuesize" mapstructure:"maxqueuesize"`
	MaxBatchSize  int           `koanf:"maxbatchsize" mapstructure:"maxbatchsize"`
}

// MetricsConfig configures metric export. Protocol, TLS and headers follow TraceConfig.
type MetricsConfig struct {
	Enabled       *bool         `koanf:"enabled" mapstructure:"enabled"`
	Endpoint      string        `koanf:"endpoint" mapstructure:"endpoint"`
	Interval      time.Duration `koanf:"interval" mapstructure:"interval"`
	ExportTimeout time.Duration `koanf:"exporttimeout" mapstructure:"exporttimeout"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	if c.Trace.BatchTimeout == 0 {
		if c.isDevelopment() {
			c.Trace.BatchTimeout = 500 * time.Millisecond
		} else {
			c.Trace.BatchTimeout = 5 * time.Second
		}
	}
	if c.Trace.ExportTimeout == 0 {
		if c.isDevelopment() {
			c.Trace.ExportTimeout = 10 * time.Second
		} else {
			c.Trace.ExportTimeout = 60 * time.Second
		}
	}
	if c.Trace.MaxQueueSize == 0 {
		c.Trace.MaxQueueSize = 2048
	}
	if c.Trace.MaxBatchSize == 0 {
		c.Trace.MaxBatchSize = 512
	}
	c.Trace.Headers = cloneHeaderMap(c.Trace.Headers)

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = c.Trace.Endpoint
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
	if c.Metrics.ExportTimeout == 0 {
		c.Metrics.ExportTimeout = 30 * time.Second
	}
}

func (c *Config) isDevelopment() bool {
	return c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout
}

// Validate checks the configuration. A disabled configuration is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		return ErrMissingServiceName
	}
	if c.Trace.SampleRate != nil && (*c.Trace.SampleRate < 0 || *c.Trace.SampleRate > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, *c.Trace.SampleRate)
	}
	if c.Trace.Endpoint == EndpointStdout {
		return nil
	}
	switch c.Trace.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
	default:
		return fmt.Errorf("trace protocol '%s': %w", c.Trace.Protocol, ErrInvalidProtocol)
	}
	if err := validateEndpoint(c.Trace.Protocol, c.Trace.Endpoint); err != nil {
		return fmt.Errorf("trace endpoint: %w", err)
	}
	if c.Metrics.Endpoint != EndpointStdout {
		if err := validateEndpoint(c.Trace.Protocol, c.Metrics.Endpoint); err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
	}
	return nil
}

// validateEndpoint requires a scheme for HTTP and forbids one for gRPC.
func validateEndpoint(protocol, endpoint string) error {
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	switch {
	case protocol == ProtocolGRPC && hasScheme:
		return fmt.Errorf("%w: gRPC endpoint %q must be host:port", ErrInvalidEndpointFormat, endpoint)
	case protocol == ProtocolHTTP && !hasScheme:
		return fmt.Errorf("%w: HTTP endpoint %q must include http:// or https://", ErrInvalidEndpointFormat, endpoint)
	}
	return nil
}

func cloneHeaderMap(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	clone := make(map[string]string, len(headers))
	maps.Copy(clone, headers)
	return clone
}

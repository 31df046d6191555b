package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Enabled: true, Service: ServiceConfig{Name: "gateway"}}
	cfg.ApplyDefaults()

	assert.Equal(t, "unknown", cfg.Service.Version)
	assert.Equal(t, EnvironmentDevelopment, cfg.Environment)
	assert.Equal(t, EndpointStdout, cfg.Trace.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Trace.Protocol)
	require.NotNil(t, cfg.Trace.Enabled)
	assert.True(t, *cfg.Trace.Enabled)
	require.NotNil(t, cfg.Trace.SampleRate)
	assert.Equal(t, 1.0, *cfg.Trace.SampleRate)
	assert.Equal(t, 500*time.Millisecond, cfg.Trace.BatchTimeout)
	assert.Equal(t, 10*time.Second, cfg.Trace.ExportTimeout)
	assert.Equal(t, 2048, cfg.Trace.MaxQueueSize)
	assert.Equal(t, 512, cfg.Trace.MaxBatchSize)

	assert.Equal(t, EndpointStdout, cfg.Metrics.Endpoint)
	require.NotNil(t, cfg.Metrics.Enabled)
	assert.True(t, *cfg.Metrics.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Metrics.Interval)
}

func TestApplyDefaultsProduction(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		Environment: "production",
		Trace: TraceConfig{
			Enabled:    BoolPtr(false),
			Endpoint:   "otel-collector:4317",
			Protocol:   ProtocolGRPC,
			SampleRate: Float64Ptr(0.25),
			Headers:    map[string]string{"api-key": "secret"},
		},
	}
	headers := cfg.Trace.Headers
	cfg.ApplyDefaults()

	assert.False(t, *cfg.Trace.Enabled, "explicit false is preserved")
	assert.Equal(t, 0.25, *cfg.Trace.SampleRate)
	assert.Equal(t, 5*time.Second, cfg.Trace.BatchTimeout)
	assert.Equal(t, 60*time.Second, cfg.Trace.ExportTimeout)
	assert.Equal(t, "otel-collector:4317", cfg.Metrics.Endpoint)

	cfg.Trace.Headers["api-key"] = "changed"
	assert.Equal(t, "secret", headers["api-key"], "headers are copied")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "disabled config is always valid",
			cfg:  Config{},
		},
		{
			name:    "missing service name",
			cfg:     Config{Enabled: true},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "sample rate out of range",
			cfg: Config{Enabled: true, Service: ServiceConfig{Name: "svc"},
				Trace: TraceConfig{Endpoint: EndpointStdout, SampleRate: Float64Ptr(1.5)}},
			wantErr: ErrInvalidSampleRate,
		},
		{
			name: "unknown protocol",
			cfg: Config{Enabled: true, Service: ServiceConfig{Name: "svc"},
				Trace: TraceConfig{Endpoint: "collector:4317", Protocol: "udp"}},
			wantErr: ErrInvalidProtocol,
		},
		{
			name: "grpc endpoint with scheme",
			cfg: Config{Enabled: true, Service: ServiceConfig{Name: "svc"},
				Trace: TraceConfig{Endpoint: "http://collector:4317", Protocol: ProtocolGRPC}},
			wantErr: ErrInvalidEndpointFormat,
		},
		{
			name: "http endpoint without scheme",
			cfg: Config{Enabled: true, Service: ServiceConfig{Name: "svc"},
				Trace: TraceConfig{Endpoint: "collector:4318", Protocol: ProtocolHTTP}},
			wantErr: ErrInvalidEndpointFormat,
		},
		{
			name: "valid http endpoint",
			cfg: Config{Enabled: true, Service: ServiceConfig{Name: "svc"},
				Trace:   TraceConfig{Endpoint: "https://collector:4318", Protocol: ProtocolHTTP},
				Metrics: MetricsConfig{Endpoint: "https://collector:4318"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}

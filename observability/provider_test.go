package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gaborage/go-bricks-rest/logger"
)

// restoreGlobals puts back the OpenTelemetry globals a provider may replace.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	prop := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(&Config{}, nil)
	require.NoError(t, err)

	assert.IsType(t, noop.NewTracerProvider(), p.TracerProvider())
	assert.IsType(t, metricnoop.NewMeterProvider(), p.MeterProvider())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderNilConfig(t *testing.T) {
	_, err := NewProvider(nil, nil)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewProviderInvalidConfig(t *testing.T) {
	_, err := NewProvider(&Config{Enabled: true}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingServiceName)
}

func TestNewProviderStdout(t *testing.T) {
	restoreGlobals(t)

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, "debug", false, nil)

	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "gateway", Version: "v1.2.3"},
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(p, time.Second) })

	assert.Same(t, p.TracerProvider(), otel.GetTracerProvider())
	assert.Contains(t, buf.String(), "Observability provider initialized")

	counter, err := CreateCounter(p.MeterProvider().Meter("test"), "test.counter", "test counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	span.End()

	assert.NoError(t, p.ForceFlush(context.Background()))
}

func TestNewProviderTracingOnly(t *testing.T) {
	restoreGlobals(t)

	p, err := NewProvider(&Config{
		Enabled: true,
		Service: ServiceConfig{Name: "gateway"},
		Metrics: MetricsConfig{Enabled: BoolPtr(false)},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.IsType(t, metricnoop.NewMeterProvider(), p.MeterProvider())
}

func TestMustNewProviderPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		MustNewProvider(&Config{Enabled: true}, nil)
	})
}

func TestCreateHistogram(t *testing.T) {
	h, err := CreateHistogram(metricnoop.NewMeterProvider().Meter("test"), "test.duration", "durations", metric.WithUnit("s"))
	require.NoError(t, err)
	h.Record(context.Background(), 0.5)
}

type failingProvider struct {
	*noopProvider
}

func (failingProvider) Shutdown(context.Context) error {
	return errors.New("exporter unreachable")
}

func TestShutdownHelper(t *testing.T) {
	assert.NoError(t, Shutdown(nil, time.Second))
	assert.NoError(t, Shutdown(newNoopProvider(), 0))

	err := Shutdown(failingProvider{newNoopProvider()}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exporter unreachable")
}

package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-rest/observability"
)

const instrumentationName = "github.com/gaborage/go-bricks-rest/httpclient"

const (
	metricRequestDuration = "http.client.request.duration"
	metricRetries         = "http.client.retries"
	metricExternalErrors  = "http.client.external_service.errors"

	attrErrorType = "error.type"
)

// telemetry holds the client's tracer and instruments.
type telemetry struct {
	tracer         trace.Tracer
	duration       metric.Float64Histogram
	retries        metric.Int64Counter
	externalErrors metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	t := &telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	if t.duration, err = observability.CreateHistogram(meter, metricRequestDuration,
		"Duration of outbound REST calls",
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
		t.duration = metricnoop.Float64Histogram{}
	}
	if t.retries, err = observability.CreateCounter(meter, metricRetries,
		"Retries issued for GET calls",
		metric.WithUnit("{retry}"),
	); err != nil {
		otel.Handle(err)
		t.retries = metricnoop.Int64Counter{}
	}
	if t.externalErrors, err = observability.CreateCounter(meter, metricExternalErrors,
		"Calls that failed because the downstream service was unavailable",
		metric.WithUnit("{error}"),
	); err != nil {
		otel.Handle(err)
		t.externalErrors = metricnoop.Int64Counter{}
	}
	return t
}

func (t *telemetry) start(ctx context.Context, method, rawURL string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLFull(rawURL),
		),
	)
}

// end closes span and records the call duration. status is 0 when no response arrived.
func (t *telemetry) end(ctx context.Context, span trace.Span, method string, status int, elapsed time.Duration, err error) {
	attrs := []attribute.KeyValue{semconv.HTTPRequestMethodKey.String(method)}
	if status > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(status))
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	}
	if err != nil {
		errType := attribute.String(attrErrorType, errorTypeOf(err))
		attrs = append(attrs, errType)
		span.SetAttributes(errType)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsExternalServiceError(err) {
			t.externalErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	}
	t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	span.End()
}

func (t *telemetry) retry(ctx context.Context, method string) {
	t.retries.Add(ctx, 1, metric.WithAttributes(semconv.HTTPRequestMethodKey.String(method)))
}

func errorTypeOf(err error) string {
	if clientErr, ok := err.(ClientError); ok {
		return string(clientErr.Type())
	}
	return "_OTHER"
}

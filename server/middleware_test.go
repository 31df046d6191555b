package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-bricks-rest/config"
	"github.com/gaborage/go-bricks-rest/httpclient"
	"github.com/gaborage/go-bricks-rest/logger"
	"github.com/gaborage/go-bricks-rest/trace"
)

const (
	testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	testTraceState  = "congo=t61rcWkgMzE"
)

// setupTracing installs an in-memory span exporter as the global tracer
// provider and restores the previous globals when the test ends.
func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	originalTP := otel.GetTracerProvider()
	originalPropagator := otel.GetTextMapPropagator()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Failed to shutdown test tracer provider: %v", err)
		}
		otel.SetTracerProvider(originalTP)
		otel.SetTextMapPropagator(originalPropagator)
	})

	return exporter
}

func TestTraceContextStoresInboundHeaders(t *testing.T) {
	e := echo.New()
	e.Use(TraceContext())

	var captured context.Context
	e.GET(testRoute, func(c echo.Context) error {
		captured = c.Request().Context()
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, testRoute, http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "inbound-id")
	req.Header.Set(trace.HeaderTraceParent, testTraceParent)
	req.Header.Set(trace.HeaderTraceState, testTraceState)
	e.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	id, ok := trace.IDFromContext(captured)
	assert.True(t, ok)
	assert.Equal(t, "inbound-id", id)

	tp, ok := trace.ParentFromContext(captured)
	assert.True(t, ok)
	assert.Equal(t, testTraceParent, tp)

	ts, ok := trace.StateFromContext(captured)
	assert.True(t, ok)
	assert.Equal(t, testTraceState, ts)
}

func TestTraceContextGeneratesRequestID(t *testing.T) {
	e := echo.New()
	e.Use(TraceContext())

	var id string
	e.GET(testRoute, func(c echo.Context) error {
		id, _ = trace.IDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, testRoute, http.NoBody))

	assert.Len(t, id, 36)
	assert.Equal(t, id, rec.Header().Get(echo.HeaderXRequestID))
}

func TestInboundAuthAndBearerToken(t *testing.T) {
	e := echo.New()
	e.Use(InboundAuth())

	var fromContext, fromEcho string
	var ctxOK, echoOK bool
	e.GET(testRoute, func(c echo.Context) error {
		fromContext, ctxOK = httpclient.TokenFromContext(c.Request().Context())
		fromEcho, echoOK = BearerToken(c)
		return c.NoContent(http.StatusOK)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, testRoute, http.NoBody)
		req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
		e.ServeHTTP(httptest.NewRecorder(), req)

		assert.True(t, ctxOK)
		assert.Equal(t, "abc", fromContext)
		assert.True(t, echoOK)
		assert.Equal(t, "abc", fromEcho)
	})

	t.Run("no header", func(t *testing.T) {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, testRoute, http.NoBody))

		assert.False(t, ctxOK)
		assert.Empty(t, fromContext)
		assert.False(t, echoOK)
	})

	_, ok := BearerToken(nil)
	assert.False(t, ok)
}

func TestOutboundCallForwardsInboundTokenAndTrace(t *testing.T) {
	var gotAuth, gotRequestID string
	downstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(echo.HeaderAuthorization)
		gotRequestID = r.Header.Get(echo.HeaderXRequestID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(downstream.Close)

	log := logger.New("disabled", false)
	client := httpclient.NewClient(log)
	s := New(testConfig(config.EnvProduction), log)
	s.Echo().GET(testRoute, func(c echo.Context) error {
		resp, err := client.Get(c.Request().Context(), &httpclient.Request{URL: downstream.URL, ForwardInboundToken: true})
		if err != nil {
			return err
		}
		return c.JSONBlob(resp.StatusCode, resp.Body)
	})

	req := httptest.NewRequest(http.MethodGet, testRoute, http.NoBody)
	req.Header.Set(echo.HeaderAuthorization, "Bearer inbound-token")
	req.Header.Set(echo.HeaderXRequestID, "chain-1")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "Bearer inbound-token", gotAuth)
	assert.Equal(t, "chain-1", gotRequestID)
}

func TestOTelMiddlewareCreatesServerSpan(t *testing.T) {
	exporter := setupTracing(t)

	s := New(testConfig(config.EnvProduction), logger.New("disabled", false))
	s.Echo().GET("/api/users/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/users/123", http.NoBody)
	req.Header.Set(trace.HeaderTraceParent, testTraceParent)
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /api/users/:id", span.Name)
	assert.Equal(t, oteltrace.SpanKindServer, span.SpanKind)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", span.SpanContext.TraceID().String())
}

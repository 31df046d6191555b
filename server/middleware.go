package server

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/go-bricks-rest/config"
	"github.com/gaborage/go-bricks-rest/logger"
)

// HeaderXResponseTime reports how long the handler chain took.
const HeaderXResponseTime = "X-Response-Time"

// SetupMiddlewares registers the middleware chain used by New.
// Order matters: the request ID must exist before TraceContext resolves it,
// and InboundAuth must run before any handler issues outbound calls.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config) {
	e.Use(middleware.RequestID())

	// Server spans; the global propagator extracts inbound W3C context
	e.Use(otelecho.Middleware(cfg.App.Name))

	e.Use(TraceContext())
	e.Use(InboundAuth())

	e.Use(Logger(log, healthPath, readyPath))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(Timing())
}

// Timing sets X-Response-Time right before the response headers are written.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			resp := c.Response()
			resp.Before(func() {
				resp.Header().Set(HeaderXResponseTime, time.Since(start).String())
			})
			return next(c)
		}
	}
}

// requestID reads the request ID from the response, falling back to the request header.
func requestID(c echo.Context) string {
	if resp := c.Response(); resp != nil {
		if id := resp.Header().Get(echo.HeaderXRequestID); id != "" {
			return id
		}
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}

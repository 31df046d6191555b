package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-rest/logger"
	"github.com/gaborage/go-bricks-rest/trace"
)

// slowRequestThreshold marks 2xx requests that took longer as WARN.
const slowRequestThreshold = time.Second

// Logger returns a middleware that emits one summary log per request using
// OpenTelemetry HTTP semantic convention field names. Requests to skipPaths
// (health endpoints) are not logged.
func Logger(log logger.Logger, skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if _, ok := skip[path]; ok {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Let the error handler write the response so the logged status is final
				c.Error(err)
			}
			latency := time.Since(start)

			logRequestSummary(c, log, latency, err)
			return nil
		}
	}
}

func logRequestSummary(c echo.Context, log logger.Logger, latency time.Duration, err error) {
	req := c.Request()
	status := c.Response().Status

	contextLog := log.WithContext(req.Context())
	var event logger.LogEvent
	resultCode := "INFO"
	switch {
	case status >= http.StatusInternalServerError:
		event, resultCode = contextLog.Error(), "ERROR"
	case status >= http.StatusBadRequest, latency > slowRequestThreshold:
		event, resultCode = contextLog.Warn(), "WARN"
	default:
		event = contextLog.Info()
	}

	if err != nil {
		event = event.Err(err)
	}

	correlationID, _ := trace.IDFromContext(req.Context())

	event.
		Str("request_id", requestID(c)).
		Str("correlation_id", correlationID).
		Str("http.request.method", req.Method).
		Int("http.response.status_code", status).
		Int64("http.server.request.duration", latency.Nanoseconds()).
		Str("url.path", req.URL.Path).
		Str("http.route", c.Path()).
		Str("client.address", c.RealIP()).
		Str("user_agent.original", req.UserAgent()).
		Str("result_code", resultCode).
		Msg(fmt.Sprintf("%s %s completed in %s with status %d", req.Method, req.URL.Path, latency, status))
}

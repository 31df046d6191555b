package server

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-rest/trace"
)

// TraceContext stores the resolved request ID and the inbound W3C trace headers
// in the request context, so outbound REST calls propagate them without
// depending on Echo.
func TraceContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			ctx := trace.WithTraceID(req.Context(), getTraceID(c))

			if tp := req.Header.Get(trace.HeaderTraceParent); tp != "" {
				ctx = trace.WithTraceParent(ctx, tp)
			}
			if ts := req.Header.Get(trace.HeaderTraceState); ts != "" {
				ctx = trace.WithTraceState(ctx, ts)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// getTraceID prefers the inbound X-Request-ID, then the one set by the
// request ID middleware, and generates a UUID as a last resort.
func getTraceID(c echo.Context) string {
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := uuid.New().String()
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

// ensureTraceParentHeader echoes the inbound traceparent, or a fresh one, on the response.
func ensureTraceParentHeader(c echo.Context) {
	if c.Response().Header().Get(trace.HeaderTraceParent) != "" {
		return
	}
	if tp := c.Request().Header.Get(trace.HeaderTraceParent); tp != "" {
		c.Response().Header().Set(trace.HeaderTraceParent, tp)
		return
	}
	c.Response().Header().Set(trace.HeaderTraceParent, trace.GenerateTraceParent())
}

package server

import (
	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-rest/httpclient"
)

// InboundAuth copies the Authorization header of the request being served
// into its context. Outbound calls made with that context forward the bearer
// token unless the request descriptor opts out.
func InboundAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Header.Get(echo.HeaderAuthorization) != "" {
				c.SetRequest(req.WithContext(httpclient.WithInboundRequest(req.Context(), req)))
			}
			return next(c)
		}
	}
}

// BearerToken returns the bearer token of the request being served.
func BearerToken(c echo.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	return httpclient.TokenFromRequest(c.Request())
}

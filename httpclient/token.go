package httpclient

import (
	"context"
	nethttp "net/http"
	"strings"
)

const bearerPrefix = "Bearer "

type inboundAuthKey struct{}

// TokenFromHeader strips a leading "Bearer " from an Authorization header value.
// It reports false when nothing remains.
func TokenFromHeader(value string) (string, bool) {
	token := strings.TrimPrefix(value, bearerPrefix)
	if token == "" {
		return "", false
	}
	return token, true
}

// TokenFromRequest extracts the bearer token of an inbound request.
func TokenFromRequest(r *nethttp.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	return TokenFromHeader(r.Header.Get(HeaderAuthorization))
}

// WithInboundAuthorization stores the Authorization header of the request being served.
func WithInboundAuthorization(ctx context.Context, value string) context.Context {
	return context.WithValue(ctx, inboundAuthKey{}, value)
}

// WithInboundRequest stores the Authorization header of r in ctx.
func WithInboundRequest(ctx context.Context, r *nethttp.Request) context.Context {
	if r == nil {
		return ctx
	}
	return WithInboundAuthorization(ctx, r.Header.Get(HeaderAuthorization))
}

// TokenFromContext returns the bearer token of the inbound request carried by ctx.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(inboundAuthKey{}).(string)
	if !ok {
		return "", false
	}
	return TokenFromHeader(value)
}

package httpclient

import (
	"context"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		token  string
		exists bool
	}{
		{"bearer", "Bearer abc", "abc", true},
		{"raw token", "abc", "abc", true},
		{"prefix only", "Bearer ", "", false},
		{"empty", "", "", false},
		{"other scheme is kept", "Basic dXNlcjpwdw==", "Basic dXNlcjpwdw==", true},
		{"case sensitive prefix", "bearer abc", "bearer abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := TokenFromHeader(tt.value)
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	req, _ := nethttp.NewRequestWithContext(context.Background(), nethttp.MethodGet, testExampleURL, nethttp.NoBody)

	_, ok := TokenFromRequest(req)
	assert.False(t, ok)

	req.Header.Set(HeaderAuthorization, "Bearer abc")
	token, ok := TokenFromRequest(req)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = TokenFromRequest(nil)
	assert.False(t, ok)
}

func TestTokenFromContext(t *testing.T) {
	_, ok := TokenFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithInboundAuthorization(context.Background(), "Bearer from-header")
	token, ok := TokenFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "from-header", token)

	req, _ := nethttp.NewRequestWithContext(context.Background(), nethttp.MethodGet, testExampleURL, nethttp.NoBody)
	req.Header.Set(HeaderAuthorization, "Bearer from-request")
	token, ok = TokenFromContext(WithInboundRequest(context.Background(), req))
	assert.True(t, ok)
	assert.Equal(t, "from-request", token)

	assert.Equal(t, ctx, WithInboundRequest(ctx, nil))
}

package httpclient

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		BackoffFactor:   time.Millisecond,
		MaxBackoff:      10 * time.Millisecond,
		StatusForcelist: []int{nethttp.StatusNotFound},
	}
}

// flakyHandler answers failStatus for the first failures calls, then 200.
func flakyHandler(hits *atomic.Int32, failures int32, failStatus int) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(failStatus)
			return
		}
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte(`{"ready":true}`))
	})
}

func TestRetryPolicyWait(t *testing.T) {
	policy := DefaultRetryPolicy()

	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{0, 0},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{7, 120 * time.Second},
		{64, 120 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, policy.Wait(tt.retry), "retry %d", tt.retry)
	}

	assert.Zero(t, RetryPolicy{}.Wait(3))
}

func TestRetryPolicyCheckRetry(t *testing.T) {
	policy := DefaultRetryPolicy()
	ctx := context.Background()

	retry, err := policy.checkRetry(ctx, &nethttp.Response{StatusCode: nethttp.StatusNotFound}, nil)
	assert.True(t, retry)
	assert.NoError(t, err)

	retry, err = policy.checkRetry(ctx, &nethttp.Response{StatusCode: nethttp.StatusInternalServerError}, nil)
	assert.False(t, retry)
	assert.NoError(t, err)

	retry, _ = policy.checkRetry(ctx, nil, errors.New("connection reset by peer"))
	assert.True(t, retry)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = policy.checkRetry(canceled, &nethttp.Response{StatusCode: nethttp.StatusNotFound}, nil)
	assert.False(t, retry)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetRetryOnFailure(t *testing.T) {
	t.Run("404 four times then 200 succeeds", func(t *testing.T) {
		var hits atomic.Int32
		server := newIPv4TestServer(t, flakyHandler(&hits, 4, nethttp.StatusNotFound))
		c := NewBuilder(createTestLogger()).WithRetryPolicy(fastRetryPolicy(5)).Build()

		resp, err := c.Get(context.Background(), &Request{URL: server.URL, RetryOnFailure: true})
		require.NoError(t, err)
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
		assert.Equal(t, `{"ready":true}`, resp.Text())
		assert.Equal(t, int32(5), hits.Load())
	})

	t.Run("without the flag a 404 is returned at once", func(t *testing.T) {
		var hits atomic.Int32
		server := newIPv4TestServer(t, flakyHandler(&hits, 4, nethttp.StatusNotFound))
		c := NewBuilder(createTestLogger()).WithRetryPolicy(fastRetryPolicy(5)).Build()

		_, err := c.Get(context.Background(), &Request{URL: server.URL})
		require.Error(t, err)
		assert.True(t, IsHTTPStatusError(err, nethttp.StatusNotFound))
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("exhausted retries return the last response", func(t *testing.T) {
		var hits atomic.Int32
		server := newIPv4TestServer(t, flakyHandler(&hits, 100, nethttp.StatusNotFound))
		c := NewBuilder(createTestLogger()).WithRetryPolicy(fastRetryPolicy(2)).Build()

		resp, err := c.Get(context.Background(), &Request{URL: server.URL, RetryOnFailure: true, Skip404Logging: true})
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
		assert.False(t, IsExternalServiceError(err))
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("statuses outside the forcelist are not retried", func(t *testing.T) {
		var hits atomic.Int32
		server := newIPv4TestServer(t, flakyHandler(&hits, 1, nethttp.StatusServiceUnavailable))
		c := NewBuilder(createTestLogger()).WithRetryPolicy(fastRetryPolicy(5)).Build()

		_, err := c.Get(context.Background(), &Request{URL: server.URL, RetryOnFailure: true})
		require.Error(t, err)
		assert.True(t, IsExternalServiceError(err))
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("write verbs ignore the flag", func(t *testing.T) {
		var hits atomic.Int32
		server := newIPv4TestServer(t, flakyHandler(&hits, 1, nethttp.StatusNotFound))
		c := NewBuilder(createTestLogger()).WithRetryPolicy(fastRetryPolicy(5)).Build()

		_, err := c.Post(context.Background(), &Request{URL: server.URL, RetryOnFailure: true})
		require.Error(t, err)
		assert.True(t, IsExternalServiceError(err))
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("connection errors are retried", func(t *testing.T) {
		var attempts atomic.Int32
		transport := roundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
			if attempts.Add(1) <= 2 {
				return nil, errors.New("connection reset by peer")
			}
			return &nethttp.Response{
				StatusCode: nethttp.StatusOK,
				Header:     nethttp.Header{},
				Body:       io.NopCloser(strings.NewReader("ok")),
				Request:    req,
			}, nil
		})
		c := NewBuilder(createTestLogger()).
			WithRetryPolicy(fastRetryPolicy(5)).
			WithTransport(transport).
			Build()

		resp, err := c.Get(context.Background(), &Request{URL: testExampleURL, RetryOnFailure: true})
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text())
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("persistent connection errors become external service errors", func(t *testing.T) {
		var attempts atomic.Int32
		transport := roundTripperFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			attempts.Add(1)
			return nil, errors.New("connection refused")
		})
		c := NewBuilder(createTestLogger()).
			WithRetryPolicy(fastRetryPolicy(1)).
			WithTransport(transport).
			Build()

		_, err := c.Get(context.Background(), &Request{URL: testExampleURL, RetryOnFailure: true})
		require.Error(t, err)
		assert.True(t, IsExternalServiceError(err))
		assert.Equal(t, int32(2), attempts.Load())
	})
}

func TestRetryLogger(t *testing.T) {
	fakeLog := &fakeLogger{}
	l := retryLogger{log: fakeLog}

	l.Debug("retrying request", "url", testExampleURL, "remaining", 3)
	l.Error("giving up")
	l.Warn("odd pair", "dangling")

	assert.Len(t, fakeLog.eventsByLevel("debug"), 1)
	assert.Equal(t, "retrying request", fakeLog.eventsByLevel("debug")[0].message)
	assert.Len(t, fakeLog.eventsByLevel("error"), 1)
	assert.Len(t, fakeLog.eventsByLevel("warn"), 1)
}

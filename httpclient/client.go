package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-bricks-rest/logger"
	resttrace "github.com/gaborage/go-bricks-rest/trace"
)

// DefaultTimeout bounds every call, connection setup included.
const DefaultTimeout = 60 * time.Second

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	retryClient          *retryablehttp.Client
	breakers             *breakers
	limiter              *rate.Limiter
	telemetry            *telemetry
	validate             *validator.Validate
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	callCount            int64
}

// Get performs a GET request. With RetryOnFailure it is retried per the client's RetryPolicy.
// 5xx responses yield an external-service error; 4xx responses yield an HTTP error.
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs an HTTP request with the specified method.
//
// Transport failures, timeouts and open circuits are reported as external-service
// errors. A 4xx/5xx response is returned together with its error unless
// req.AllowErrorStatus is set.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(method, req); err != nil {
		return nil, err
	}

	body, err := encodeBody(req.ContentType, req.Data)
	if err != nil {
		return nil, err
	}

	ctx, span := c.telemetry.start(ctx, method, req.URL)
	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)

	resp, err := c.invoke(ctx, method, req, body, start, callCount)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.telemetry.end(ctx, span, method, status, time.Since(start), err)
	return resp, err
}

func (c *client) invoke(ctx context.Context, method string, req *Request, body []byte, start time.Time, callCount int64) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, NewExternalServiceError(fmt.Sprintf("%s %s not sent: rate limit wait aborted", method, req.URL), 0, err)
		}
	}

	httpReq, err := c.buildRequest(ctx, method, req, body)
	if err != nil {
		return nil, err
	}
	traceID := httpReq.Header.Get(c.traceIDHeader())
	c.logRequest(httpReq, body, traceID)

	httpResp, err := c.send(httpReq, req)
	if err != nil {
		c.logCallFailure(method, req.URL, traceID, err)
		return nil, c.translateTransportError(method, req.URL, err)
	}

	resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
	if err != nil {
		if IsErrorType(err, NetworkError) || IsErrorType(err, TimeoutError) {
			c.logCallFailure(method, req.URL, traceID, err)
			return nil, NewExternalServiceError(fmt.Sprintf("%s %s", method, req.URL), httpResp.StatusCode, err)
		}
		return nil, err
	}

	c.logResponse(resp, traceID)
	return resp, c.checkStatus(method, req, resp, traceID)
}

// send executes httpReq, through the retrying client for flagged GETs and
// through the resource's circuit breaker when one is configured.
func (c *client) send(httpReq *nethttp.Request, req *Request) (*nethttp.Response, error) {
	do := func() (*nethttp.Response, error) {
		return c.httpClient.Do(httpReq)
	}
	if req.RetryOnFailure && httpReq.Method == nethttp.MethodGet {
		do = func() (*nethttp.Response, error) {
			retryReq, err := retryablehttp.FromRequest(httpReq)
			if err != nil {
				return nil, err
			}
			return c.retryClient.Do(retryReq)
		}
	}

	if c.breakers != nil {
		return c.breakers.execute(resourceName(httpReq.Method, httpReq.URL.String(), req.Resource), do)
	}
	return do()
}

// checkStatus turns 4xx/5xx responses into errors. GET reports 4xx as a plain
// HTTP error; everything else is an external-service error.
func (c *client) checkStatus(method string, req *Request, resp *Response, traceID string) error {
	if !IsErrorStatus(resp.StatusCode) || req.AllowErrorStatus {
		return nil
	}

	httpErr := NewHTTPError(
		fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
		resp.StatusCode,
		resp.Body,
	)
	target := fmt.Sprintf("%s %s", method, req.URL)

	if method == nethttp.MethodGet {
		if resp.StatusCode != nethttp.StatusNotFound || !req.Skip404Logging {
			c.logStatusFailure(method, req.URL, traceID, resp.StatusCode)
		}
		if resp.StatusCode >= nethttp.StatusInternalServerError {
			return NewExternalServiceError(target, resp.StatusCode, httpErr)
		}
		return httpErr
	}

	c.logStatusFailure(method, req.URL, traceID, resp.StatusCode)
	return NewExternalServiceError(target, resp.StatusCode, httpErr)
}

func (c *client) translateTransportError(method, url string, err error) error {
	target := fmt.Sprintf("%s %s", method, url)
	switch {
	case isBreakerRejection(err):
		return NewExternalServiceError(target+": circuit breaker open", 0, err)
	case errors.Is(err, context.Canceled):
		return NewNetworkError(target+": request canceled", err)
	case isTimeout(err):
		return NewExternalServiceError(target, 0, newTimeoutErrorWithCause("request timeout", c.config.Timeout, err))
	default:
		return NewExternalServiceError(target, 0, NewNetworkError("request execution failed", err))
	}
}

// buildRequest constructs an *http.Request, applies headers/auth/trace, and runs request interceptors.
func (c *client) buildRequest(ctx context.Context, method string, req *Request, body []byte) (*nethttp.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, reader)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}

	c.applyHeaders(httpReq, req)
	c.applyAuth(ctx, httpReq, req)
	c.applyTrace(ctx, httpReq)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}
	return httpReq, nil
}

// applyHeaders sets default headers, then Content-Type, then request headers. Later wins.
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	httpReq.Header.Set(HeaderContentType, string(req.ContentType.orDefault()))

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
}

// applyAuth sets basic auth, then the token header. An explicit req.Token always
// wins; the inbound token is only forwarded when no basic auth is configured.
func (c *client) applyAuth(ctx context.Context, httpReq *nethttp.Request, req *Request) {
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}
	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}

	token := req.Token
	if token == "" && auth == nil && forwardsInboundToken(httpReq.Method, req) {
		token, _ = TokenFromContext(ctx)
	}
	if token != "" {
		httpReq.Header.Set(HeaderAuthorization, req.AuthScheme.Header(token))
	}
}

// forwardsInboundToken reports whether the inbound bearer token may be sent.
// Write verbs forward it unless SkipTokenGeneration is set; GET only on opt-in.
func forwardsInboundToken(method string, req *Request) bool {
	if req.SkipTokenGeneration {
		return false
	}
	if method == nethttp.MethodGet {
		return req.ForwardInboundToken
	}
	return true
}

// applyTrace propagates the active span and the request ID without touching headers already set.
func (c *client) applyTrace(ctx context.Context, httpReq *nethttp.Request) {
	if httpReq.Header.Get(HeaderTraceParent) == "" {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	}
	resttrace.InjectIntoHeadersWithOptions(ctx, resttrace.HTTPHeaders(httpReq.Header), resttrace.InjectOptions{
		Mode:           resttrace.InjectPreserve,
		GenerateParent: c.config.EnableW3CTrace,
	})
	if header := c.traceIDHeader(); header != HeaderXRequestID && httpReq.Header.Get(header) == "" {
		httpReq.Header.Set(header, httpReq.Header.Get(HeaderXRequestID))
	}
}

func (c *client) traceIDHeader() string {
	if c.config.TraceIDHeader == "" {
		return HeaderXRequestID
	}
	return c.config.TraceIDHeader
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, newTimeoutErrorWithCause("timeout reading response body", c.config.Timeout, err)
		}
		return nil, NewNetworkError("failed to read response body", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: time.Since(start),
			CallCount:   callCount,
		},
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

package httpclient

import (
	"context"
	nethttp "net/http"
	"slices"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/gaborage/go-bricks-rest/logger"
)

const (
	// DefaultMaxRetries is the retry budget of GET calls flagged with RetryOnFailure
	DefaultMaxRetries = 5

	// DefaultBackoffFactor scales the exponential wait between retries
	DefaultBackoffFactor = 1 * time.Second

	// DefaultMaxBackoff caps a single wait between retries
	DefaultMaxBackoff = 120 * time.Second
)

// RetryPolicy describes how GET calls flagged with RetryOnFailure are retried.
// It is copied into the client on Build and never mutated afterwards.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BackoffFactor produces waits of 0, 2f, 4f, 8f... between attempts.
	BackoffFactor time.Duration
	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration
	// StatusForcelist lists the response statuses that trigger a retry.
	StatusForcelist []int
}

// DefaultRetryPolicy retries up to five times on 404 and connection errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      DefaultMaxRetries,
		BackoffFactor:   DefaultBackoffFactor,
		MaxBackoff:      DefaultMaxBackoff,
		StatusForcelist: []int{nethttp.StatusNotFound},
	}
}

// Wait returns the pause before retry number n (0-based).
// The first retry is immediate; later ones back off exponentially.
func (p RetryPolicy) Wait(n int) time.Duration {
	if n <= 0 || p.BackoffFactor <= 0 {
		return 0
	}
	if n > 30 {
		n = 30
	}
	d := p.BackoffFactor * time.Duration(1<<n)
	if p.MaxBackoff > 0 && (d > p.MaxBackoff || d <= 0) {
		return p.MaxBackoff
	}
	return d
}

func (p RetryPolicy) retryable(status int) bool {
	return slices.Contains(p.StatusForcelist, status)
}

func (p RetryPolicy) checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// Leave unrecoverable errors (bad scheme, TLS trust) to the library.
		return retryablehttp.DefaultRetryPolicy(ctx, nil, err)
	}
	return resp != nil && p.retryable(resp.StatusCode), nil
}

func (p RetryPolicy) backoff(_, _ time.Duration, attemptNum int, _ *nethttp.Response) time.Duration {
	return p.Wait(attemptNum)
}

// newRetryClient wraps httpClient so that attempts share its transport and timeout.
// Once retries are exhausted the last response or error is passed through untouched.
func newRetryClient(httpClient *nethttp.Client, policy RetryPolicy, log logger.Logger, onRetry func(*nethttp.Request, int)) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpClient
	rc.RetryMax = policy.MaxRetries
	rc.RetryWaitMin = 0
	rc.RetryWaitMax = policy.MaxBackoff
	rc.CheckRetry = policy.checkRetry
	rc.Backoff = policy.backoff
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = retryLogger{log: log}
	if onRetry != nil {
		rc.RequestLogHook = func(_ retryablehttp.Logger, req *nethttp.Request, attempt int) {
			if attempt > 0 {
				onRetry(req, attempt)
			}
		}
	}
	return rc
}

// retryLogger adapts logger.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	log logger.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Error().Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Info().Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Debug().Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.with(keysAndValues).Warn().Msg(msg)
}

func (l retryLogger) with(keysAndValues []any) logger.Logger {
	if len(keysAndValues) == 0 {
		return l.log
	}
	fields := make(map[string]any, len(keysAndValues)/2+1)
	fields["component"] = "retry"
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}
	return l.log.WithFields(fields)
}

package httpclient

import (
	"errors"
	nethttp "net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/gaborage/go-bricks-rest/logger"
)

// CircuitBreakerSettings configures the breaker kept per method and downstream host.
type CircuitBreakerSettings struct {
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed. Zero never resets.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

var errServerFailure = errors.New("server failure")

// breakers keys one circuit breaker per "METHOD_host", or per "METHOD_resource"
// when the request names its resource.
type breakers struct {
	settings CircuitBreakerSettings
	log      logger.Logger
	byName   sync.Map
}

func newBreakers(settings CircuitBreakerSettings, log logger.Logger) *breakers {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	return &breakers{settings: settings, log: log}
}

// resourceName groups calls by downstream host so that path parameters
// (/accounts/42, /accounts/43) share one breaker. resource overrides the host.
func resourceName(method, rawURL, resource string) string {
	if resource != "" {
		return method + "_" + resource
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return method + "_" + rawURL
	}
	return method + "_" + u.Host
}

func (b *breakers) get(name string) *gobreaker.CircuitBreaker[*nethttp.Response] {
	if cb, ok := b.byName.Load(name); ok {
		return cb.(*gobreaker.CircuitBreaker[*nethttp.Response])
	}
	threshold := b.settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[*nethttp.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: b.settings.MaxRequests,
		Interval:    b.settings.Interval,
		Timeout:     b.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn().
				Str("resource", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("REST client circuit breaker state changed")
		},
	})
	actual, _ := b.byName.LoadOrStore(name, cb)
	return actual.(*gobreaker.CircuitBreaker[*nethttp.Response])
}

// execute runs fn under the breaker for name. 5xx responses count as failures
// but are still handed back to the caller.
func (b *breakers) execute(name string, fn func() (*nethttp.Response, error)) (*nethttp.Response, error) {
	resp, err := b.get(name).Execute(func() (*nethttp.Response, error) {
		resp, err := fn()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= nethttp.StatusInternalServerError {
			return resp, errServerFailure
		}
		return resp, nil
	})
	if errors.Is(err, errServerFailure) {
		return resp, nil
	}
	return resp, err
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

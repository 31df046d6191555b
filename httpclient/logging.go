package httpclient

import (
	nethttp "net/http"
	"strconv"
)

const defaultMaxPayloadLogBytes = 1024

// logRequest logs the outgoing request. Headers and body previews are emitted
// at debug level only when payload logging is enabled.
func (c *client) logRequest(req *nethttp.Request, body []byte, traceID string) {
	logEvent := c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID)

	if len(req.Header) > 0 {
		logEvent = logEvent.Int("header_count", len(req.Header))
	}
	if len(body) > 0 {
		logEvent = logEvent.Int("body_size", len(body))
	}
	logEvent.Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}

	debugEvent := c.logger.Debug().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", traceID).
		Interface("headers", req.Header)
	if len(body) > 0 {
		preview, truncated := c.preview(body)
		debugEvent = debugEvent.
			Int("body_size", len(body)).
			Str("body_truncated", strconv.FormatBool(truncated)).
			Bytes("body_preview", preview)
	}
	debugEvent.Msg("REST client request")
}

// logResponse logs the response received from the downstream service.
func (c *client) logResponse(resp *Response, traceID string) {
	logEvent := c.logger.Info().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Str("request_id", traceID)

	if len(resp.Body) > 0 {
		logEvent = logEvent.Int("body_size", len(resp.Body))
	}
	logEvent.Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}

	debugEvent := c.logger.Debug().
		Str("direction", "inbound").
		Int("status", resp.StatusCode).
		Str("request_id", traceID).
		Interface("headers", resp.Headers)
	if len(resp.Body) > 0 {
		preview, truncated := c.preview(resp.Body)
		debugEvent = debugEvent.
			Int("body_size", len(resp.Body)).
			Str("body_truncated", strconv.FormatBool(truncated)).
			Bytes("body_preview", preview)
	}
	debugEvent.Msg("REST client response")
}

// logCallFailure logs a call that never produced a response.
func (c *client) logCallFailure(method, url, traceID string, err error) {
	c.logger.Error().
		Err(err).
		Str("method", method).
		Str("url", url).
		Str("request_id", traceID).
		Msgf("Error on %s %s", method, url)
}

// logStatusFailure logs a 4xx/5xx response that is about to be returned as an error.
func (c *client) logStatusFailure(method, url, traceID string, status int) {
	c.logger.Error().
		Str("method", method).
		Str("url", url).
		Str("request_id", traceID).
		Int("status", status).
		Msgf("HTTP error on %s %s with status code %d", method, url, status)
}

func (c *client) preview(body []byte) ([]byte, bool) {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 {
		limit = defaultMaxPayloadLogBytes
	}
	if len(body) > limit {
		return body[:limit], true
	}
	return body, false
}

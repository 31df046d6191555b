package server

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-bricks-rest/config"
	"github.com/gaborage/go-bricks-rest/httpclient"
	"github.com/gaborage/go-bricks-rest/logger"
)

// APIError is an error a handler can return to control the response envelope.
type APIError struct {
	code       string
	message    string
	httpStatus int
	details    map[string]any
	cause      error
}

// NewAPIError creates an API error with the given code, message and HTTP status.
func NewAPIError(code, message string, httpStatus int) *APIError {
	return &APIError{
		code:       code,
		message:    message,
		httpStatus: httpStatus,
		details:    make(map[string]any),
	}
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string) *APIError {
	return NewAPIError("BAD_REQUEST", message, http.StatusBadRequest)
}

// NewUnauthorizedError creates a 401 error.
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAPIError("UNAUTHORIZED", message, http.StatusUnauthorized)
}

// NewNotFoundError creates a 404 error for the named resource.
func NewNotFoundError(resource string) *APIError {
	return NewAPIError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// NewBadGatewayError creates a 502 error for a failed downstream call.
func NewBadGatewayError(message string) *APIError {
	return NewAPIError("BAD_GATEWAY", message, http.StatusBadGateway)
}

// ErrorCode returns the error code.
func (e *APIError) ErrorCode() string {
	return e.code
}

// Message returns the error message.
func (e *APIError) Message() string {
	return e.message
}

// HTTPStatus returns the HTTP status code.
func (e *APIError) HTTPStatus() int {
	return e.httpStatus
}

// Details returns a copy of the error details.
func (e *APIError) Details() map[string]any {
	if len(e.details) == 0 {
		return nil
	}
	cp := make(map[string]any, len(e.details))
	maps.Copy(cp, e.details)
	return cp
}

// WithDetails adds a detail entry to the error.
func (e *APIError) WithDetails(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// FromClientError maps an outbound REST client error onto the response sent
// to the caller. Downstream outages become 502, a downstream 4xx keeps its
// status, and anything else is an internal error.
func FromClientError(err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	}

	switch {
	case httpclient.IsExternalServiceError(err):
		apiErr = NewBadGatewayError("Downstream service unavailable")
		if status, ok := httpclient.StatusCodeOf(err); ok {
			apiErr.WithDetails("downstreamStatus", status)
		}
	case httpclient.IsErrorType(err, httpclient.HTTPError):
		status, _ := httpclient.StatusCodeOf(err)
		apiErr = NewAPIError(statusToErrorCode(status), http.StatusText(status), status)
	default:
		apiErr = NewAPIError("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError)
	}
	apiErr.cause = err
	return apiErr
}

// APIResponse is the envelope of every JSON error response.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func handleError(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		apiErr = NewAPIError(statusToErrorCode(he.Code), echoMessage(he), he.Code)
	default:
		apiErr = FromClientError(err)
	}

	status := apiErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.WithContext(c.Request().Context()).Error().
			Err(err).
			Str("request_id", requestID(c)).
			Int("status", status).
			Msg("Request failed")
	}

	resp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}
	if isDevelopmentEnv(cfg) {
		resp.Details = apiErr.Details()
		if err != nil && status >= http.StatusInternalServerError {
			if resp.Details == nil {
				resp.Details = map[string]any{}
			}
			resp.Details["error"] = err.Error()
		}
	}

	ensureTraceParentHeader(c)
	_ = c.JSON(status, APIResponse{
		Error: resp,
		Meta: map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"traceId":   getTraceID(c),
		},
	})
}

func echoMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	default:
		return http.StatusText(he.Code)
	}
}

func isDevelopmentEnv(cfg *config.Config) bool {
	return cfg != nil && (cfg.App.Env == config.EnvDevelopment || cfg.App.Env == "dev")
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return "CLIENT_ERROR"
	}
	return "INTERNAL_ERROR"
}

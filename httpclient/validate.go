package httpclient

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	urlRule    = "required,url"
	methodRule = "oneof=GET POST PUT PATCH DELETE"
)

// validateRequest validates the request before sending
func (c *client) validateRequest(method string, req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	if err := c.validate.Var(req.URL, urlRule); err != nil {
		return fieldError(err, "url", fmt.Sprintf("URL %q is not absolute", req.URL))
	}
	if err := c.validate.Var(method, methodRule); err != nil {
		return fieldError(err, "method", fmt.Sprintf("method %q is not supported", method))
	}
	return nil
}

func fieldError(err error, field, message string) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(message, field)
	}
	return NewValidationError(err.Error(), field)
}

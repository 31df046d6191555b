package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var validate = validator.New()

// Validate checks struct constraints of every section, then the cross-field rules
// of the REST client section.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewValidationError("config", "configuration is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		return translateValidationError(err)
	}

	return validateRest(&cfg.Rest)
}

func validateRest(cfg *RestConfig) error {
	if cfg.Retry.MaxBackoff > 0 && cfg.Retry.Backoff > cfg.Retry.MaxBackoff {
		return NewValidationError("rest.retry.backoff", fmt.Sprintf("must not exceed rest.retry.maxbackoff (%s)", cfg.Retry.MaxBackoff))
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst == 0 {
		return NewValidationError("rest.ratelimit.burst", "must be positive when rest.ratelimit.rps is set")
	}
	if cfg.CircuitBreaker.Enabled && cfg.CircuitBreaker.Failures == 0 {
		return NewValidationError("rest.circuitbreaker.failures", "must be positive when the circuit breaker is enabled")
	}
	return nil
}

// translateValidationError reports the first failing field using its config path.
func translateValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return NewValidationError("config", err.Error())
	}

	fe := validationErrors[0]
	field := configPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return NewValidationError(field, "is required")
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "gt", "gte", "lt", "lte":
		return NewValidationError(field, fmt.Sprintf("must satisfy %s %s (got %v)", fe.Tag(), fe.Param(), fe.Value()))
	default:
		return NewValidationError(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}

// configPath turns "Config.Rest.Retry.Max" into "rest.retry.max".
func configPath(namespace string) string {
	namespace = strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(namespace)
}

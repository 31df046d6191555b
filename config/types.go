package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config represents the overall application configuration structure.
// The embedded koanf.Koanf instance allows for flexible access to
// sections not explicitly defined in the struct (observability, custom).
type Config struct {
	App    AppConfig    `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	Log    LogConfig    `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Rest   RestConfig   `koanf:"rest" json:"rest" yaml:"rest" mapstructure:"rest"`
	Server ServerConfig `koanf:"server" json:"server" yaml:"server" mapstructure:"server"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" mapstructure:"env" validate:"oneof=development staging production"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// RestConfig configures the outbound REST client.
type RestConfig struct {
	// Timeout bounds every outbound call, connection setup included.
	Timeout            time.Duration        `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	LogPayloads        bool                 `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads" mapstructure:"logpayloads"`
	MaxPayloadLogBytes int                  `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes" mapstructure:"maxpayloadlogbytes" validate:"gte=0"`
	TraceIDHeader      string               `koanf:"traceidheader" json:"traceidheader" yaml:"traceidheader" mapstructure:"traceidheader"`
	W3CTrace           bool                 `koanf:"w3ctrace" json:"w3ctrace" yaml:"w3ctrace" mapstructure:"w3ctrace"`
	Headers            map[string]string    `koanf:"headers" json:"headers" yaml:"headers" mapstructure:"headers"`
	Retry              RetryConfig          `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`
	RateLimit          RateLimitConfig      `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit" mapstructure:"ratelimit"`
	CircuitBreaker     CircuitBreakerConfig `koanf:"circuitbreaker" json:"circuitbreaker" yaml:"circuitbreaker" mapstructure:"circuitbreaker"`
}

// RetryConfig is the retry policy applied to GET calls that opt into retries.
type RetryConfig struct {
	Max        int           `koanf:"max" json:"max" yaml:"max" mapstructure:"max" validate:"gte=0,lte=20"`
	Backoff    time.Duration `koanf:"backoff" json:"backoff" yaml:"backoff" mapstructure:"backoff" validate:"gte=0"`
	MaxBackoff time.Duration `koanf:"maxbackoff" json:"maxbackoff" yaml:"maxbackoff" mapstructure:"maxbackoff" validate:"gte=0"`
	Statuses   []int         `koanf:"statuses" json:"statuses" yaml:"statuses" mapstructure:"statuses" validate:"dive,gte=100,lte=599"`
}

// RateLimitConfig throttles outbound calls. RPS 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" yaml:"rps" mapstructure:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// CircuitBreakerConfig configures the per-endpoint circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MaxRequests uint32        `koanf:"maxrequests" json:"maxrequests" yaml:"maxrequests" mapstructure:"maxrequests"`
	Interval    time.Duration `koanf:"interval" json:"interval" yaml:"interval" mapstructure:"interval" validate:"gte=0"`
	Timeout     time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Failures    uint32        `koanf:"failures" json:"failures" yaml:"failures" mapstructure:"failures"`
}

// ServerConfig holds the inbound HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port            int           `koanf:"port" json:"port" yaml:"port" mapstructure:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"readtimeout" json:"readtimeout" yaml:"readtimeout" mapstructure:"readtimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"writetimeout" json:"writetimeout" yaml:"writetimeout" mapstructure:"writetimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout" json:"shutdowntimeout" yaml:"shutdowntimeout" mapstructure:"shutdowntimeout" validate:"gt=0"`
}

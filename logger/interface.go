// Package logger is the structured logging facade shared by the REST client,
// the echo middleware and the observability provider.
package logger

import (
	"context"
	"time"
)

// Logger creates leveled events. Implementations mask sensitive fields
// (authorization headers, tokens, passwords) before they are written.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	Fatal() LogEvent

	// WithContext returns the request-scoped logger carried by ctx, if any.
	WithContext(ctx context.Context) Logger
	WithFields(fields map[string]any) Logger
}

// LogEvent accumulates fields until Msg or Msgf writes it.
type LogEvent interface {
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Uint64(key string, value uint64) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
	Bytes(key string, val []byte) LogEvent

	Msg(msg string)
	Msgf(format string, args ...any)
}

// Package logging provides structured logging configuration using zerolog.
//
// Library packages never log on their own: they accept a zerolog.Logger
// and default to silence when none is supplied. Binaries build their
// root logger here and hand component loggers down.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger writing to stderr at the given level.
// Unknown level names are reported on the returned logger and fall
// back to info.
func New(level string) zerolog.Logger {
	return NewWithOutput(level, os.Stderr)
}

// NewWithOutput is New writing to the given sink.
func NewWithOutput(level string, out io.Writer) zerolog.Logger {
	lvl, known := parseLevel(level)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	if !known {
		logger.Warn().Str("level", level).Msg("Unknown log level, using info")
	}
	return logger
}

// NewComponent derives a sub-logger tagged with a component name.
func NewComponent(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// parseLevel converts a level name to a zerolog.Level. The second
// return reports whether the name was recognized; unrecognized names
// map to info.
func parseLevel(level string) (zerolog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, true
	case "info", "":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, key, policy, TTL)
//   - Request flow (attempt counts, shared in-flight results)
//
// Info: Normal operation events
//   - Client creation, server startup/shutdown
//   - Cache invalidation
//
// Warn: Warning conditions that don't prevent operation
//   - Rate limit waits and exhausted windows
//   - Retry attempts and exhausted retry budgets
//   - Circuit breaker state changes
//
// Error: Error conditions requiring attention
//   - Configuration errors
//   - Listener failures
//
// Context Fields:
//   - component: owning subsystem (cache, ratelimit, client, fetch, proxy)
//   - endpoint: upstream endpoint path
//   - status: HTTP status code
//   - request_id: per-call correlation ID
//   - cache / key / policy / ttl: cache coordinates
//   - remaining / reset_in: rate limit window state

// Package logging provides structured logging configuration for the FPL proxy using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "fpl-proxy"

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()

	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, population, eviction)
//   - Individual source attempts that succeeded
//   - Requests coalesced onto an in-flight population
//
// Info: Normal operation events
//   - Server startup/shutdown and effective configuration
//   - Cache warm-up results
//   - A fallback source answering after an earlier source failed
//   - Access log lines
//
// Warn: Warning conditions that don't prevent operation
//   - A source failed and the chain moved on
//   - A payload was served from the static snapshot
//   - Upstream throttling (403)
//
// Error: Error conditions requiring attention
//   - Every source of a chain failed
//   - A cache population panicked
//   - Configuration errors
//
// Context Fields:
//   - component: Package emitting the line (cache, fallback, upstream, server)
//   - family: Resource family (bootstrap, live-event, picks, ...)
//   - key: Cache key (fpl:<family>:<params>)
//   - source: Source name (primary, secondary, snapshot)
//   - class: Outcome class (success, rate_limited, client_error, server_error, network_error)
//   - status: HTTP status code
//   - duration: Elapsed time in milliseconds
//   - request_id: Per-request id assigned by the server

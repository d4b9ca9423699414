// Package logging configures the structured logger shared by the server,
// reaper, and connection handlers, and attaches per-connection correlation
// ids.
package logging

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger at the given level. format "pretty" renders
// a human-readable console writer; anything else (including the default
// "json") logs structured JSON to stdout.
func New(level zerolog.Level, format string) zerolog.Logger {
	var output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if format != "pretty" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		logger := zerolog.New(os.Stdout).Level(level).With().
			Timestamp().
			Caller().
			Str("service", "tcpnetlock").
			Logger()
		return logger
	}

	return zerolog.New(output).Level(level).With().
		Timestamp().
		Caller().
		Str("service", "tcpnetlock").
		Logger()
}

// WithConnID returns a child logger tagged with a fresh correlation id for
// one accepted connection, so concurrent connections' log lines can be
// told apart in aggregate logs.
func WithConnID(logger zerolog.Logger) zerolog.Logger {
	return logger.With().Str("conn_id", uuid.NewString()).Logger()
}

// Package logging builds the process-wide zerolog logger. The batch run
// itself speaks through the dashboard; structured logs cover the render
// backend and browser plumbing.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger constructs a zerolog.Logger for the given environment. In
// development it logs at debug level through the console writer; otherwise
// JSON at info level.
func NewLogger(appEnv string) zerolog.Logger {
	level := zerolog.InfoLevel
	if appEnv == "development" {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}

// Quiet returns a disabled logger for subcommands whose stdout is the
// product (JSON output modes).
func Quiet() zerolog.Logger {
	return zerolog.Nop()
}

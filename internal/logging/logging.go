// Package logging configures structured logging for the whole binary.
//
// All packages obtain a component-scoped zerolog logger from New. Output goes
// to stderr so stdout stays free for command output. The global level is
// controlled by the SHAPE_TRAINER_LOG_LEVEL environment variable
// ("debug", "info", "warn", "error"); unset or unknown values default to info.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.SetGlobalLevel(levelFromEnv())
}

// New returns a logger tagged with the given component name, writing to stderr.
func New(component string) zerolog.Logger {
	return NewWithWriter(component, os.Stderr)
}

// NewWithWriter returns a component-tagged logger writing to w. Tests use this
// to capture output.
func NewWithWriter(component string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

func levelFromEnv() zerolog.Level {
	switch os.Getenv("SHAPE_TRAINER_LOG_LEVEL") {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

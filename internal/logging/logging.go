// Package logging builds the zerolog loggers used across the secret
// subsystem. Raw secret values must never be passed to any log event.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the given level. When json is false
// the output uses zerolog's console writer for human consumption.
func New(w io.Writer, level string, json bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewStderr is the common construction for CLI commands.
func NewStderr(level string, json bool) zerolog.Logger {
	return New(os.Stderr, level, json)
}

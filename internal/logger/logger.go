// Package logger configures the process-wide zerolog logger used by
// every other package via the global github.com/rs/zerolog/log helpers.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup parses level (case-insensitive, any level name zerolog knows:
// trace, debug, info, warn, error, fatal, panic, disabled; an empty or
// unrecognized value falls back to info), wires zerolog's global logger to
// write structured JSON to stdout with RFC3339 timestamps, and returns
// the configured logger for callers that want a local reference rather
// than the package-level log.Logger.
func Setup(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = l
	return l
}

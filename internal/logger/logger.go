// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger for the given environment and level and installs
// it as the global zerolog logger.  In "dev" the output is a colored
// console stream, everywhere else one JSON object per line.
func New(env, level string) zerolog.Logger {
	return newWithWriter(env, level, os.Stderr)
}

func newWithWriter(env, level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	out := w
	if env == "dev" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "seminars").Logger()
	log.Logger = l
	return l
}

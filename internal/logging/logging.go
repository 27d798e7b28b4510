// Package logging builds the zerolog loggers used by the binaries.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger writing to w at the named level.
// Pretty output uses zerolog's console writer. An unknown level falls
// back to info and is reported once.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	lvl, err := zerolog.ParseLevel(level)
	unknown := err != nil || lvl == zerolog.NoLevel
	if unknown {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if unknown {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return logger
}

// Nop returns a disabled logger for tests and library defaults.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

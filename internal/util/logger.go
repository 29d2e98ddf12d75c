// Package util provides logging setup and virtual serial helpers.
package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the global zerolog logger for app. Unknown levels
// fall back to info. console selects a human-readable writer.
func InitLogger(app, level string, console bool) zerolog.Logger {
	return initLogger(os.Stderr, app, level, console)
}

func initLogger(out io.Writer, app, level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	logger := zerolog.New(out).Level(lvl).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// Info logs a formatted message at info level on the global logger.
func Info(msg string, args ...any) {
	log.Info().Msgf(msg, args...)
}

// Error logs a formatted message at error level on the global logger.
func Error(msg string, args ...any) {
	log.Error().Msgf(msg, args...)
}

// Package logger provides a structured zerolog.Logger configured from a
// small Config, matching the setup used throughout the engine's services.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error (default: info)
	Pretty bool   // human-readable console output instead of JSON
}

// New builds a zerolog.Logger writing to stderr.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var writer = os.Stderr
	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()

	if cfg.Pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339})
	}

	return logger
}

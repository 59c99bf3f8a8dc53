package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds the process logger. ENV=development switches to console output at debug level;
// LOG_LEVEL overrides the level in any environment.
func New() zerolog.Logger {
	// Cloud Logging parses the level from the "severity" field.
	zerolog.LevelFieldName = "severity"
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	level := zerolog.InfoLevel
	if os.Getenv("ENV") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		level = zerolog.DebugLevel
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		} else {
			logger.Warn().Str("LOG_LEVEL", raw).Msg("Unknown log level, keeping default")
		}
	}
	return logger.Level(level)
}

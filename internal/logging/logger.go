package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/mikaelw/subtrack/internal/config"
)

// NewLogger creates a structured zerolog.Logger with service context fields
// from the config. Non-empty fields are added automatically.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		ctx = ctx.Str("env", cfg.Environment)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

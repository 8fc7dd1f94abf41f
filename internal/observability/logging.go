// Package observability provides the daemon's structured logger and
// OpenTelemetry instruments.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/npcbrain/internal/config"
)

// loggerName prefixes every log entry's logger field.
const loggerName = "npcbrain"

// NewLogger builds the process logger: JSON in production, a colourised
// console encoder for local runs. Timestamps are ISO-8601 in both.
//
// Precondition: cfg passed config.Validate.
// Postcondition: Returns a logger whose minimum level is cfg.Level, or an error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
		// Decision logs arrive in bursts every tick; keep them all.
		zc.Sampling = nil
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named(loggerName), nil
}

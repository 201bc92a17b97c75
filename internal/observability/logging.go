// Package observability provides logging helpers for the server.
package observability

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/drawguess/internal/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "drawguess"

// maxLineRunes caps protocol lines written into log fields.
const maxLineRunes = 120

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger writing to stderr, or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		// DRAW lines arrive in bursts; sampling would hide the tail of a stroke.
		zapCfg.Sampling = nil
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.InitialFields = map[string]interface{}{"service": ServiceName}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Line returns a string field holding a protocol line, truncated so a long
// chat or stroke payload cannot flood the log.
func Line(key, line string) zap.Field {
	if utf8.RuneCountInString(line) <= maxLineRunes {
		return zap.String(key, line)
	}
	runes := []rune(line)
	return zap.String(key, string(runes[:maxLineRunes])+"…")
}

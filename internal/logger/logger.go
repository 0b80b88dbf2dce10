// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level holds the active log level so it can be changed at runtime.
var Level = zap.NewAtomicLevel()

// New builds a JSON production logger writing to stdout at the given level
// (debug, info, warn or error). An unknown level falls back to info and is
// reported as an error alongside the usable logger.
func New(level string) (*zap.Logger, error) {
	var levelErr error
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		levelErr = fmt.Errorf("invalid log level %q, using info: %w", level, err)
		lvl = zapcore.InfoLevel
	}
	Level.SetLevel(lvl)

	cfg := zap.NewProductionConfig()
	cfg.Level = Level
	cfg.OutputPaths = []string{"stdout"}
	cfg.EncoderConfig = zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "severity",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, levelErr
}

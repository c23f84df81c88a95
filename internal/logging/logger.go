package logging

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger configured for structured production logging.
// When logDir is non-empty the logger also writes to <logDir>/wayfarer.log.
func NewLogger(level, logDir string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = parseLevel(level)

	if logDir != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, filepath.Join(logDir, "wayfarer.log"))
	}

	return cfg.Build()
}

func parseLevel(level string) zap.AtomicLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info", "":
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

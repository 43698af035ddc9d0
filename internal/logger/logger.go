package logger

import (
	"go.uber.org/zap"
)

// Log is the package logger, it does nothing until Initialize is called
var Log = zap.NewNop()

// Initialize builds a production logger with level and installs it as Log
func Initialize(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	Log = zl
	return zl, nil
}

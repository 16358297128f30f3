package main

import (
	"go.uber.org/zap"

	"github.com/gemforce-team/abcedit/editor"
	"github.com/gemforce-team/abcedit/errors"
	"github.com/gemforce-team/abcedit/program"
)

// newLogger builds the CLI logger: JSON at the configured level, or a
// development console logger at debug level when verbose.
func newLogger(verbose bool, level string) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "log-level")
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func installLogger(l *zap.Logger) {
	program.SetLogger(l)
	editor.SetLogger(l)
}

// Package logger holds the process-wide zap logger and hands out named
// child loggers per component.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names used with For
const (
	ComponentCLI          = "cli"
	ComponentOrchestrator = "orchestrator"
	ComponentMonitor      = "monitor"
	ComponentSystemd      = "systemd"
	ComponentWatcher      = "watcher"
)

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init builds the process logger. Output goes to stderr so it never mixes
// with tables or JSON on stdout.
func Init(level string) error {
	lvl := zapcore.WarnLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return err
		}
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the process logger
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// For returns a sugared logger named after component
func For(component string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.Named(component).Sugar()
}

// Sync flushes buffered entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Package logging configures the process-wide structured logger.
//
// Logs go to a file under the data directory so they never interleave with
// the interactive prompt. Before Init is called (and in tests) the logger is
// a no-op.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Init opens dockhand.log in dataDir and installs the file-backed logger.
// debug widens the level from Info to Debug.
func Init(dataDir string, debug bool) error {
	logPath := filepath.Join(dataDir, "dockhand.log")

	// 0600: the log captures commands and tool output
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(f)),
		level,
	)

	logger = zap.New(core)
	return nil
}

// L returns the process logger.
func L() *zap.Logger {
	return logger
}

// Named returns a component-scoped logger.
func Named(name string) *zap.Logger {
	return logger.Named(name)
}

// Sync flushes buffered log entries. Safe to call on exit even when Init was
// never called.
func Sync() {
	_ = logger.Sync()
}

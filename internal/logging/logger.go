// Package logging provides the zap logger used by the installer.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where install logs go.
type Options struct {
	// File receives JSON lines. Empty disables the file core.
	File string
	// Debug adds a colored development core on Console.
	Debug   bool
	Console io.Writer
}

// New builds a logger from opts. The returned close func syncs the
// logger and closes the log file.
func New(opts Options) (*zap.Logger, func() error, error) {
	var cores []zapcore.Core
	var file *os.File

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("open install log: %w", err)
		}
		file = f

		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zap.DebugLevel))
	}

	if opts.Debug {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.TimeKey = "ts"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc), zapcore.AddSync(console), zap.DebugLevel))
	}

	if len(cores) == 0 {
		return zap.NewNop(), func() error { return nil }, nil
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = logger.Sync() //nolint:errcheck // best-effort flush
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

// Package logger configures the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

// Options selects where logs go.
type Options struct {
	Level       string
	Filename    string
	DisableFile bool
}

// Logger holds the zap logger and the rotating file behind it.
type Logger struct {
	Log     *zap.Logger
	rotator *rotator.Rotator
}

// New returns a Logger that discards everything until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds a JSON logger on stderr at level, teed into a rotating log
// file unless file logging is disabled.
func (l *Logger) Init(opts Options) error {
	lvl, err := zap.ParseAtomicLevel(opts.Level)
	if err != nil {
		return fmt.Errorf("failed to parse log level %q: %w", opts.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stderr), lvl),
	}

	if !opts.DisableFile && opts.Filename != "" {
		if dir := filepath.Dir(opts.Filename); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		r, err := rotator.New(opts.Filename, rotateThresholdKB, false, rotateMaxRolls)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.rotator = r
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(r), lvl))
	}

	l.Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return nil
}

// Close flushes the logger and closes the log file.
func (l *Logger) Close() error {
	_ = l.Log.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}

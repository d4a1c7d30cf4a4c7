// Package logger provides leveled logging for qarag.
// Messages go to stderr through a log/slog text handler. The level defaults
// to info; the CLI --verbose flag lowers it to debug.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu    sync.RWMutex
	level = new(slog.LevelVar)
	base  = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose switches between debug and info level.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if debug messages are emitted.
func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base = newLogger(w)
}

// L returns the underlying structured logger for callers that want attributes.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func logf(lvl slog.Level, format string, args ...any) {
	l := L()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	l.Log(context.Background(), lvl, fmt.Sprintf(format, args...))
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

// Info logs a formatted message at info level.
func Info(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

// Warn logs a formatted message at warn level.
func Warn(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

// Error logs a formatted message at error level.
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }

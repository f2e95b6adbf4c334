// Package logger is the process-wide leveled log facade. Everything funnels
// through one slog text handler; main retargets the output once the log file
// tee is open, and config sets the level at startup.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	level slog.LevelVar

	mu      sync.RWMutex
	current = textLogger(os.Stdout)
)

func textLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &level}))
}

// SetOutput redirects all subsequent log lines to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	mu.Lock()
	current = textLogger(w)
	mu.Unlock()
}

// SetLevel sets the minimum level by name. Unknown names fall back to info.
func SetLevel(name string) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

func Debugf(format string, v ...any) { get().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { get().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { get().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { get().Error(fmt.Sprintf(format, v...)) }

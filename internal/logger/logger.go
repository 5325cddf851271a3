// Package logger is the process-wide structured logging facade shared by
// remotefsd and remotefs-mount: log/slog underneath, with a colorized text
// handler for terminals and a JSON handler for files and pipes.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects the level, format and destination of the process log.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	mu       sync.RWMutex
	slogger  *slog.Logger
	levelVar = new(slog.LevelVar)
	output   io.Writer = os.Stdout
	useColor           = isTerminal(os.Stdout.Fd())
	format             = "text"
)

func init() {
	rebuild()
}

// rebuild swaps in a handler matching the current settings. Callers hold mu.
func rebuild() {
	opts := &slog.HandlerOptions{Level: levelVar}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = newTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Init configures the process logger. Output may be "stdout", "stderr" or a
// file path; files are opened append-only and never colorized. A zero-value
// field leaves the corresponding setting unchanged.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "":
		// keep current destination
	case "stdout":
		output = os.Stdout
		useColor = isTerminal(os.Stdout.Fd())
	case "stderr":
		output = os.Stderr
		useColor = isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}
		output = f
		useColor = false
	}

	if cfg.Level != "" {
		if lvl, ok := parseLevel(cfg.Level); ok {
			levelVar.Set(lvl)
		}
	}

	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		format = f
	}

	rebuild()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Used by tests.
func InitWithWriter(w io.Writer, level, formatName string, color bool) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	useColor = color
	if level != "" {
		if lvl, ok := parseLevel(level); ok {
			levelVar.Set(lvl)
		}
	}
	if f := strings.ToLower(formatName); f == "text" || f == "json" {
		format = f
	}
	rebuild()
}

// SetLevel changes the minimum level without touching format or destination.
func SetLevel(level string) {
	if lvl, ok := parseLevel(level); ok {
		levelVar.Set(lvl)
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level: Debug("msg", "key", value, ...).
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a child logger carrying pre-bound attributes.
func With(args ...any) *slog.Logger { return current().With(args...) }

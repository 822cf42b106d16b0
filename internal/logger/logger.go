// Package logger provides leveled logging for the pitchoracle service.
// It wraps the standard log package with level filtering so that noisy
// fetch-chain diagnostics can be silenced in production.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a logging level.
type Level int

const (
	// DebugLevel logs per-strategy fetch attempts and prompt sizes.
	DebugLevel Level = iota
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs degraded but recoverable conditions (relay fallback, decode defaults).
	WarnLevel
	// ErrorLevel logs failures that abort an operation.
	ErrorLevel
)

// ParseLevel converts a config string into a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var (
	mu       sync.Mutex
	minLevel = InfoLevel
	std      = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// Init configures the package-level logger. Format "text" adds caller
// information; anything else keeps the compact default.
func Init(level string, format string) {
	mu.Lock()
	defer mu.Unlock()

	minLevel = ParseLevel(level)

	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

func output(l Level, tag, format string, args ...interface{}) {
	mu.Lock()
	logger := std
	min := minLevel
	mu.Unlock()

	if l < min {
		return
	}
	_ = logger.Output(3, fmt.Sprintf(tag+" "+format, args...))
}

// Debug logs a message at DebugLevel.
func Debug(format string, args ...interface{}) {
	output(DebugLevel, "[DEBUG]", format, args...)
}

// Info logs a message at InfoLevel.
func Info(format string, args ...interface{}) {
	output(InfoLevel, "[INFO]", format, args...)
}

// Warn logs a message at WarnLevel.
func Warn(format string, args ...interface{}) {
	output(WarnLevel, "[WARN]", format, args...)
}

// Error logs a message at ErrorLevel.
func Error(format string, args ...interface{}) {
	output(ErrorLevel, "[ERROR]", format, args...)
}

// Fatal logs a message and exits the process.
func Fatal(format string, args ...interface{}) {
	output(ErrorLevel, "[FATAL]", format, args...)
	os.Exit(1)
}

package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Logger wraps standard log with level-based output
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	error *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLogger creates a new levelled logger writing to stdout/stderr.
// level "debug" enables Debug output.
func NewLogger(level string) *Logger {
	return newLogger(os.Stdout, os.Stderr, level)
}

// NewLoggerTo creates a logger sending every level to w.
func NewLoggerTo(w io.Writer, level string) *Logger {
	return newLogger(w, w, level)
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *Logger {
	return newLogger(io.Discard, io.Discard, "debug")
}

func newLogger(out, errOut io.Writer, level string) *Logger {
	flags := log.Lmsgprefix
	return &Logger{
		info:         log.New(out, "[INFO]  ", flags),
		warn:         log.New(out, "[WARN]  ", flags),
		error:        log.New(errOut, "[ERROR] ", flags),
		debug:        log.New(out, "[DEBUG] ", flags),
		debugEnabled: strings.EqualFold(strings.TrimSpace(level), "debug"),
	}
}

func (l *Logger) prefix() string {
	return fmt.Sprintf(" %s ", time.Now().Format("2006-01-02 15:04:05"))
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.info.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.warn.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.error.Printf(l.prefix()+msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf(l.prefix()+msg, args...)
}

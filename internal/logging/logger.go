// Package logging provides levelled text and JSON loggers that carry
// request and correlation ids from a context.
package logging

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is a log severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel maps a level name to a Level, defaulting to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// levelState is shared between a logger and the loggers derived from it so
// SetLevel applies to all of them.
type levelState struct {
	mu    sync.RWMutex
	level Level
}

func (s *levelState) get() Level {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

func (s *levelState) set(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

// Logger writes "[LEVEL] message" lines through a standard log.Logger.
type Logger struct {
	out   io.Writer
	log   *log.Logger
	level *levelState
}

// NewLogger creates a text logger writing to stderr.
func NewLogger(prefix, level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, prefix, level)
}

// NewLoggerWithWriter creates a text logger writing to w.
func NewLoggerWithWriter(w io.Writer, prefix, level string) *Logger {
	return &Logger{
		out:   w,
		log:   log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		level: &levelState{level: ParseLevel(level)},
	}
}

func (l *Logger) SetLevel(level Level) { l.level.set(level) }
func (l *Logger) GetLevel() Level      { return l.level.get() }

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if level < l.level.get() {
		return
	}
	l.log.Printf("["+level.String()+"] "+format, v...)
}

func (l *Logger) Debug(format string, v ...interface{}) { l.logf(DebugLevel, format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.logf(InfoLevel, format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.logf(WarnLevel, format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.logf(ErrorLevel, format, v...) }

// Fatal logs and exits the process.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.log.Fatalf("[FATAL] "+format, v...)
}

// WithRequestID returns a logger whose prefix carries reqID.
func (l *Logger) WithRequestID(reqID string) *Logger {
	return &Logger{
		out:   l.out,
		log:   log.New(l.out, l.log.Prefix()+"["+reqID+"] ", l.log.Flags()),
		level: l.level,
	}
}

package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogEntry is one JSON log line.
type LogEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Service       string                 `json:"service"`
	Version       string                 `json:"version,omitempty"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Caller        string                 `json:"caller,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// sink serializes writes from a logger and everything derived from it.
type sink struct {
	mu  sync.Mutex
	enc *json.Encoder
	out io.Writer
}

func (s *sink) write(entry *LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(entry); err != nil {
		fmt.Fprintf(s.out, "[%s] %s: %s (json encoding failed: %v)\n",
			entry.Timestamp, entry.Level, entry.Message, err)
	}
}

// StructuredLogger writes JSON entries with service metadata, ids from the
// context and arbitrary fields.
type StructuredLogger struct {
	service string
	version string
	level   *levelState
	sink    *sink
	fields  map[string]interface{}
}

// NewStructuredLogger creates a JSON logger writing to stderr.
func NewStructuredLogger(service, version, level string) *StructuredLogger {
	return NewStructuredLoggerWithWriter(os.Stderr, service, version, level)
}

// NewStructuredLoggerWithWriter creates a JSON logger writing to w.
func NewStructuredLoggerWithWriter(w io.Writer, service, version, level string) *StructuredLogger {
	return &StructuredLogger{
		service: service,
		version: version,
		level:   &levelState{level: ParseLevel(level)},
		sink:    &sink{enc: json.NewEncoder(w), out: w},
		fields:  map[string]interface{}{},
	}
}

func (l *StructuredLogger) derive(extra map[string]interface{}) *StructuredLogger {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	return &StructuredLogger{
		service: l.service,
		version: l.version,
		level:   l.level,
		sink:    l.sink,
		fields:  fields,
	}
}

// WithContext picks up the correlation and request ids stored in ctx.
func (l *StructuredLogger) WithContext(ctx context.Context) ContextLogger {
	extra := map[string]interface{}{}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		extra["correlation_id"] = id
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		extra["request_id"] = id
	}
	return l.derive(extra)
}

func (l *StructuredLogger) WithFields(fields map[string]interface{}) ContextLogger {
	return l.derive(fields)
}

func (l *StructuredLogger) WithField(key string, value interface{}) ContextLogger {
	return l.derive(map[string]interface{}{key: value})
}

// countVerbs counts printf verbs in format, ignoring "%%".
func countVerbs(format string) int {
	n := 0
	for i := 0; i < len(format)-1; i++ {
		if format[i] != '%' {
			continue
		}
		if format[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}

// log formats message with as many args as it has verbs. Any remaining
// args are read as key/value pairs.
func (l *StructuredLogger) log(level Level, message string, args ...interface{}) {
	if level < l.level.get() {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Service:   l.service,
		Version:   l.version,
		Message:   message,
	}

	rest := args
	if verbs := countVerbs(message); verbs > 0 && len(args) >= verbs {
		entry.Message = fmt.Sprintf(message, args[:verbs]...)
		rest = args[verbs:]
	}
	if len(rest) > 0 {
		entry.Fields = make(map[string]interface{})
		for i := 0; i+1 < len(rest); i += 2 {
			key, ok := rest[i].(string)
			if !ok {
				key = fmt.Sprint(rest[i])
			}
			entry.Fields[key] = rest[i+1]
		}
		if len(rest)%2 == 1 {
			entry.Fields["extra"] = rest[len(rest)-1]
		}
	}

	if _, file, line, ok := runtime.Caller(2); ok {
		if idx := strings.LastIndex(file, "/internal/"); idx >= 0 {
			file = file[idx+1:]
		}
		entry.Caller = fmt.Sprintf("%s:%d", file, line)
	}

	for k, v := range l.fields {
		switch k {
		case "correlation_id":
			entry.CorrelationID = fmt.Sprint(v)
		case "request_id":
			entry.RequestID = fmt.Sprint(v)
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[k] = v
		}
	}

	l.sink.write(entry)
}

func (l *StructuredLogger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

func (l *StructuredLogger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

func (l *StructuredLogger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

func (l *StructuredLogger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs at error level and exits.
func (l *StructuredLogger) Fatal(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
	os.Exit(1)
}

func (l *StructuredLogger) SetLevel(level Level) { l.level.set(level) }
func (l *StructuredLogger) GetLevel() Level      { return l.level.get() }

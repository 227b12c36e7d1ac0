package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// LoggerAdapter gives the text Logger the ContextLogger interface. Fields
// are appended to each message as key=value pairs.
type LoggerAdapter struct {
	*Logger
	fields map[string]interface{}
}

// NewLoggerAdapter wraps logger.
func NewLoggerAdapter(logger *Logger) *LoggerAdapter {
	return &LoggerAdapter{Logger: logger, fields: map[string]interface{}{}}
}

func (l *LoggerAdapter) with(extra map[string]interface{}) *LoggerAdapter {
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	base := l.Logger
	for k, v := range extra {
		if k == "request_id" {
			if id, ok := v.(string); ok {
				base = base.WithRequestID(id)
				continue
			}
		}
		fields[k] = v
	}
	return &LoggerAdapter{Logger: base, fields: fields}
}

func (l *LoggerAdapter) WithContext(ctx context.Context) ContextLogger {
	extra := map[string]interface{}{}
	if id, ok := CorrelationIDFromContext(ctx); ok {
		extra["correlation_id"] = id
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		extra["request_id"] = id
	}
	return l.with(extra)
}

func (l *LoggerAdapter) WithField(key string, value interface{}) ContextLogger {
	return l.with(map[string]interface{}{key: value})
}

func (l *LoggerAdapter) WithFields(fields map[string]interface{}) ContextLogger {
	return l.with(fields)
}

func (l *LoggerAdapter) Debug(format string, args ...interface{}) {
	format, args = l.prepare(format, args)
	l.Logger.Debug(format, args...)
}

func (l *LoggerAdapter) Info(format string, args ...interface{}) {
	format, args = l.prepare(format, args)
	l.Logger.Info(format, args...)
}

func (l *LoggerAdapter) Warn(format string, args ...interface{}) {
	format, args = l.prepare(format, args)
	l.Logger.Warn(format, args...)
}

func (l *LoggerAdapter) Error(format string, args ...interface{}) {
	format, args = l.prepare(format, args)
	l.Logger.Error(format, args...)
}

func (l *LoggerAdapter) Fatal(format string, args ...interface{}) {
	format, args = l.prepare(format, args)
	l.Logger.Fatal(format, args...)
}

// prepare keeps as many args as format has verbs and turns the rest into
// key/value fields, matching StructuredLogger.
func (l *LoggerAdapter) prepare(format string, args []interface{}) (string, []interface{}) {
	verbs := countVerbs(format)
	if len(args) <= verbs {
		return l.decorate(format, nil), args
	}
	rest := args[verbs:]
	extra := make(map[string]interface{}, len(rest)/2+1)
	for i := 0; i+1 < len(rest); i += 2 {
		extra[fmt.Sprint(rest[i])] = rest[i+1]
	}
	if len(rest)%2 == 1 {
		extra["extra"] = rest[len(rest)-1]
	}
	return l.decorate(format, extra), args[:verbs]
}

// decorate appends the fields in key order. Percent signs in values are
// escaped so they survive the printf pass.
func (l *LoggerAdapter) decorate(format string, extra map[string]interface{}) string {
	if len(l.fields) == 0 && len(extra) == 0 {
		return format
	}
	fields := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		kv := fmt.Sprintf("%s=%v", k, fields[k])
		parts = append(parts, strings.ReplaceAll(kv, "%", "%%"))
	}
	return format + " [" + strings.Join(parts, " ") + "]"
}

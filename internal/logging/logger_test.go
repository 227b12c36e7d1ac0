package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		testFunc  func(*Logger)
		shouldLog bool
	}{
		{"debug level logs everything", "debug", func(l *Logger) { l.Debug("test") }, true},
		{"info level skips debug", "info", func(l *Logger) { l.Debug("test") }, false},
		{"info level logs info", "info", func(l *Logger) { l.Info("test") }, true},
		{"error level only logs errors", "error", func(l *Logger) { l.Warn("test") }, false},
		{"error level logs errors", "error", func(l *Logger) { l.Error("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, "[TEST] ", tt.logLevel)

			tt.testFunc(logger)

			if hasOutput := buf.Len() > 0; hasOutput != tt.shouldLog {
				t.Errorf("Expected shouldLog=%v but got output=%v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "[TEST] ", "info")
	logger.Info("rendered %d moves", 42)

	output := buf.String()
	for _, want := range []string{"[TEST]", "[INFO]", "rendered 42 moves"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestLoggerWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "[TEST] ", "info")

	logger.WithRequestID("req-123").Info("test message")

	if !strings.Contains(buf.String(), "[req-123]") {
		t.Errorf("Expected request ID in output, got: %s", buf.String())
	}
}

func TestLoggerDerivedSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "", "error")
	derived := logger.WithRequestID("req-1")

	logger.SetLevel(DebugLevel)
	derived.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Error("Expected SetLevel on the parent to apply to derived loggers")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{" warn ", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if level := ParseLevel(tt.input); level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %s, want %s", tt.level, got, tt.expected)
		}
	}
}

func TestLoggerSetLevel(t *testing.T) {
	logger := NewLoggerWithWriter(&bytes.Buffer{}, "[TEST] ", "info")

	if logger.GetLevel() != InfoLevel {
		t.Errorf("Expected initial level to be InfoLevel")
	}
	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Errorf("Expected level to be DebugLevel after SetLevel")
	}
}

func TestAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "info"))

	adapter.WithFields(map[string]interface{}{
		"theme": "dark",
		"moves": 12,
	}).Info("rendered")

	if !strings.Contains(buf.String(), "rendered [moves=12 theme=dark]") {
		t.Errorf("Expected sorted fields in output, got: %s", buf.String())
	}
}

func TestAdapterEscapesPercent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "info"))

	adapter.WithField("notation", "C[100%]").Info("parsed %d", 3)

	if !strings.Contains(buf.String(), "parsed 3 [notation=C[100%]]") {
		t.Errorf("Expected literal percent in output, got: %s", buf.String())
	}
}

func TestAdapterWithContext(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "info"))

	ctx := ContextWithCorrelationID(context.Background(), "corr-1")
	ctx = ContextWithRequestID(ctx, "req-9")
	adapter.WithContext(ctx).Info("hello")

	output := buf.String()
	if !strings.Contains(output, "[req-9]") {
		t.Errorf("Expected request id in prefix, got: %s", output)
	}
	if !strings.Contains(output, "correlation_id=corr-1") {
		t.Errorf("Expected correlation id field, got: %s", output)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithField("k", "v").Error("dropped")
}

func TestAdapterKeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewLoggerAdapter(NewLoggerWithWriter(&buf, "", "info"))

	adapter.Info("cache %s", "hit", "key", "abc123", "size", 42)

	if !strings.Contains(buf.String(), "cache hit [key=abc123 size=42]") {
		t.Errorf("Expected trailing args as fields, got: %s", buf.String())
	}
	if strings.Contains(buf.String(), "EXTRA") {
		t.Errorf("Unexpected printf overflow marker: %s", buf.String())
	}
}

package logging

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/config"
)

func TestFileWriter(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	fw, err := NewFileWriter(logPath, 1, 3, 30, false)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()

	testData := []byte("Test log message\n")
	n, err := fw.Write(testData)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(testData) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(testData), n)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != string(testData) {
		t.Errorf("Expected content %q, got %q", testData, content)
	}
}

func TestFileWriterRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	fw, err := NewFileWriter(logPath, 1, 3, 30, false)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()
	fw.mu.Lock()
	fw.maxSize = 1024
	fw.mu.Unlock()

	largeData := bytes.Repeat([]byte{'A'}, 600)
	if _, err := fw.Write(largeData); err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(largeData); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "test.log.*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 backup file, found %d", len(files))
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != int64(len(largeData)) {
		t.Errorf("Expected fresh file of %d bytes, got %d", len(largeData), info.Size())
	}
}

func TestFileWriterCompressesBackups(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	fw, err := NewFileWriter(logPath, 1, 3, 30, true)
	if err != nil {
		t.Fatal(err)
	}
	fw.mu.Lock()
	fw.maxSize = 16
	fw.mu.Unlock()

	if _, err := fw.Write([]byte("first line here\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("second\n")); err != nil {
		t.Fatal(err)
	}
	// Close waits for the compression goroutine.
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}

	gz, err := filepath.Glob(filepath.Join(tmpDir, "test.log.*.gz"))
	if err != nil {
		t.Fatal(err)
	}
	if len(gz) != 1 {
		t.Fatalf("Expected 1 compressed backup, found %d", len(gz))
	}

	f, err := os.Open(gz[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first line here\n" {
		t.Errorf("Unexpected backup content %q", data)
	}
}

func TestFileWriterCleanupKeepsNewest(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	now := time.Now()
	for i, name := range []string{"a", "b", "c", "d"} {
		path := logPath + "." + name
		if err := os.WriteFile(path, []byte(name), 0o600); err != nil {
			t.Fatal(err)
		}
		mod := now.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatal(err)
		}
	}
	old := logPath + ".ancient"
	if err := os.WriteFile(old, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	aged := now.AddDate(0, 0, -40)
	if err := os.Chtimes(old, aged, aged); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWriter(logPath, 1, 2, 30, false)
	if err != nil {
		t.Fatal(err)
	}
	defer fw.Close()
	fw.performCleanup()

	for _, name := range []string{"a", "b", "ancient"} {
		if _, err := os.Stat(logPath + "." + name); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed", name)
		}
	}
	for _, name := range []string{"c", "d"} {
		if _, err := os.Stat(logPath + "." + name); err != nil {
			t.Errorf("Expected %s to be kept: %v", name, err)
		}
	}
}

func TestFileWriterWriteAfterClose(t *testing.T) {
	fw, err := NewFileWriter(filepath.Join(t.TempDir(), "test.log"), 1, 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("late")); err == nil {
		t.Error("Expected error writing to a closed FileWriter")
	}
	if err := fw.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
}

func TestNewLoggerFromConfigWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "renderer.log")
	var console bytes.Buffer

	logger, closer := NewLoggerFromConfig(&Config{
		Level:   "info",
		Format:  FormatJSON,
		Service: "sgf-renderer",
		Version: "test",
		File:    &config.FileLogConfig{Enabled: true, Path: logPath, MaxSizeMB: 1},
		Stderr:  &console,
	})
	if closer == nil {
		t.Fatal("Expected a closer when file logging is enabled")
	}
	logger.Info("to both")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"to both"`) {
		t.Errorf("Expected JSON entry in file, got %s", data)
	}
	if !strings.Contains(console.String(), "to both") {
		t.Errorf("Expected entry on console, got %s", console.String())
	}
}

func TestNewLoggerFromConfigFormats(t *testing.T) {
	t.Setenv("SGF_RENDERER_LOG_FORMAT", "")

	var buf bytes.Buffer
	logger, closer := NewLoggerFromConfig(&Config{Level: "info", Prefix: "[r] ", Stderr: &buf})
	if closer != nil {
		t.Error("Expected no closer without file logging")
	}
	if _, ok := logger.(*LoggerAdapter); !ok {
		t.Errorf("Expected text logger by default, got %T", logger)
	}

	t.Setenv("SGF_RENDERER_LOG_FORMAT", "JSON")
	logger, _ = NewLoggerFromConfig(&Config{Level: "info", Stderr: &buf})
	if _, ok := logger.(*StructuredLogger); !ok {
		t.Errorf("Expected structured logger from env, got %T", logger)
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "JSON"
	lc := FromAppConfig(cfg)

	if lc.Format != FormatJSON {
		t.Errorf("Expected json format, got %s", lc.Format)
	}
	if lc.Service != "sgf-renderer" {
		t.Errorf("Expected service name from server config, got %s", lc.Service)
	}
	if lc.File == nil || lc.File.MaxBackups != cfg.Logging.File.MaxBackups {
		t.Errorf("Expected file settings copied, got %+v", lc.File)
	}
}

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/dmmcquay/sgf-renderer/internal/config"
)

// LogFormat selects text or JSON output.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Config describes how to build a logger.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	Prefix  string
	File    *config.FileLogConfig
	// Stderr overrides the console destination. Nil means os.Stderr.
	Stderr io.Writer
}

// FromAppConfig builds a logging Config from the application config.
func FromAppConfig(cfg *config.Config) *Config {
	file := cfg.Logging.File
	return &Config{
		Level:   cfg.Logging.Level,
		Format:  LogFormat(strings.ToLower(cfg.Logging.Format)),
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		Prefix:  cfg.Logging.Prefix,
		File:    &file,
	}
}

// NewLoggerFromConfig creates a logger for cfg. The returned closer is
// non-nil only when a log file was opened.
func NewLoggerFromConfig(cfg *Config) (ContextLogger, io.Closer) {
	format := cfg.Format
	if format == "" {
		if envFormat := os.Getenv("SGF_RENDERER_LOG_FORMAT"); envFormat != "" {
			format = LogFormat(strings.ToLower(envFormat))
		} else {
			format = FormatText
		}
	}

	console := cfg.Stderr
	if console == nil {
		console = os.Stderr
	}
	writer := console
	var fileWriter *FileWriter

	if cfg.File != nil && cfg.File.Enabled && cfg.File.Path != "" {
		fw, err := NewFileWriter(
			cfg.File.Path,
			cfg.File.MaxSizeMB,
			cfg.File.MaxBackups,
			cfg.File.MaxAgeDays,
			cfg.File.Compress,
		)
		if err != nil {
			NewLoggerWithWriter(console, cfg.Prefix, "error").Error("Failed to open log file %s: %v", cfg.File.Path, err)
		} else {
			fileWriter = fw
			writer = io.MultiWriter(console, fw)
		}
	}

	var logger ContextLogger
	switch format {
	case FormatJSON:
		logger = NewStructuredLoggerWithWriter(writer, cfg.Service, cfg.Version, cfg.Level)
	default:
		logger = NewLoggerAdapter(NewLoggerWithWriter(writer, cfg.Prefix, cfg.Level))
	}

	if fileWriter != nil {
		return logger, fileWriter
	}
	return logger, nil
}

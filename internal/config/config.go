package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the full renderer configuration.
type Config struct {
	Render    RenderConfig    `json:"render"`
	Server    ServerConfig    `json:"server"`
	Logging   LoggingConfig   `json:"logging"`
	RateLimit RateLimitConfig `json:"rateLimit"`
	Cache     CacheConfig     `json:"cache"`
}

type RenderConfig struct {
	// CanvasSize is the side of the square output image in pixels.
	CanvasSize   int    `json:"canvasSize"`
	DefaultTheme string `json:"defaultTheme"`
	// AssetDir holds dark_board.png, light_board.png, black_stone.png and
	// white_stone.png. Missing images are generated.
	AssetDir     string `json:"assetDir"`
	FontPath     string `json:"fontPath"`
	WriteRetries int    `json:"writeRetries"`
}

type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	HTTPAddr    string `json:"httpAddr"`
	// MaxBodyBytes caps notation uploaded to the HTTP render endpoints.
	MaxBodyBytes int64 `json:"maxBodyBytes"`
}

type LoggingConfig struct {
	Level  string        `json:"level"`
	Prefix string        `json:"prefix"`
	Format string        `json:"format"`
	File   FileLogConfig `json:"file"`
}

type FileLogConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"maxSizeMB"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
	Compress   bool   `json:"compress"`
}

type RateLimitConfig struct {
	Enabled        bool           `json:"enabled"`
	RequestsPerMin int            `json:"requestsPerMin"`
	BurstSize      int            `json:"burstSize"`
	PerToolLimits  map[string]int `json:"perToolLimits"`
}

// CacheConfig controls the rendered image cache.
type CacheConfig struct {
	Enabled      bool  `json:"enabled"`
	MaxItems     int   `json:"maxItems"`
	MaxSizeBytes int64 `json:"maxSizeBytes"`
	TTLSeconds   int   `json:"ttlSeconds"`
}

// Themes accepted by render.defaultTheme.
var Themes = []string{"dark", "light", "paper", "plain"}

const (
	minCanvas = 64
	maxCanvas = 4096
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			CanvasSize:   800,
			DefaultTheme: "dark",
			WriteRetries: 3,
		},
		Server: ServerConfig{
			Name:         "sgf-renderer",
			Version:      "0.1.0",
			Description:  "Renders SGF game records as board diagrams",
			HTTPAddr:     ":8080",
			MaxBodyBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Prefix: "[sgf-renderer] ",
			File: FileLogConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 120,
			BurstSize:      20,
			PerToolLimits:  make(map[string]int),
		},
		Cache: CacheConfig{
			Enabled:      false,
			MaxItems:     256,
			MaxSizeBytes: 64 << 20,
			TTLSeconds:   600,
		},
	}
}

// Load builds the configuration from defaults, then the JSON file at
// configPath if given, then SGF_RENDERER_* environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SGF_RENDERER_THEME"); v != "" {
		c.Render.DefaultTheme = v
	}
	if v := os.Getenv("SGF_RENDERER_ASSET_DIR"); v != "" {
		c.Render.AssetDir = v
	}
	if v := os.Getenv("SGF_RENDERER_FONT"); v != "" {
		c.Render.FontPath = v
	}
	if v := os.Getenv("SGF_RENDERER_CANVAS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SGF_RENDERER_CANVAS: %w", err)
		}
		c.Render.CanvasSize = n
	}

	if v := os.Getenv("SGF_RENDERER_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}

	if v := os.Getenv("SGF_RENDERER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SGF_RENDERER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SGF_RENDERER_LOG_FILE"); v != "" {
		c.Logging.File.Enabled = true
		c.Logging.File.Path = v
	}

	if v := os.Getenv("SGF_RENDERER_RATE_LIMIT_ENABLED"); v != "" {
		c.RateLimit.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("SGF_RENDERER_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = strings.ToLower(v) == "true"
	}
	return nil
}

// validate rejects settings that cannot work and clamps the rest into range.
func (c *Config) validate() error {
	c.Render.DefaultTheme = strings.ToLower(strings.TrimSpace(c.Render.DefaultTheme))
	if !isTheme(c.Render.DefaultTheme) {
		return fmt.Errorf("unknown default theme %q (want one of %s)", c.Render.DefaultTheme, strings.Join(Themes, ", "))
	}

	if c.Render.AssetDir != "" {
		info, err := os.Stat(c.Render.AssetDir)
		if err != nil {
			return fmt.Errorf("asset directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("asset directory %s is not a directory", c.Render.AssetDir)
		}
	}
	if c.Render.FontPath != "" {
		if _, err := os.Stat(c.Render.FontPath); err != nil {
			return fmt.Errorf("font not found at %s", c.Render.FontPath)
		}
	}

	if c.Render.CanvasSize < minCanvas {
		c.Render.CanvasSize = minCanvas
	}
	if c.Render.CanvasSize > maxCanvas {
		c.Render.CanvasSize = maxCanvas
	}
	if c.Render.WriteRetries < 1 {
		c.Render.WriteRetries = 1
	}

	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Logging.File.Enabled && c.Logging.File.Path == "" {
		return fmt.Errorf("file logging enabled without a path")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerMin < 1 {
			c.RateLimit.RequestsPerMin = 1
		}
		if c.RateLimit.BurstSize < 1 {
			c.RateLimit.BurstSize = 1
		}
	}
	if c.RateLimit.PerToolLimits == nil {
		c.RateLimit.PerToolLimits = make(map[string]int)
	}

	if c.Cache.Enabled {
		if c.Cache.MaxItems < 1 {
			c.Cache.MaxItems = 1
		}
		if c.Cache.TTLSeconds < 0 {
			c.Cache.TTLSeconds = 0
		}
	}

	return nil
}

func isTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

// GetConfigPath finds a config file: $SGF_RENDERER_CONFIG, ./config.json,
// then ~/.sgf-renderer/config.json. It returns "" when none exists.
func GetConfigPath() string {
	if path := os.Getenv("SGF_RENDERER_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".sgf-renderer", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}

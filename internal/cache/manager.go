package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/config"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
)

// Key identifies a render. Two requests with equal keys produce identical
// images.
type Key struct {
	Notation  string `json:"notation"`
	Theme     string `json:"theme"`
	Kifu      bool   `json:"kifu"`
	MoveLimit int    `json:"moveLimit"`
	Canvas    int    `json:"canvas"`
}

// Observer receives cache activity. metrics.PrometheusCollector implements it.
type Observer interface {
	RecordCacheHit()
	RecordCacheMiss()
	SetCacheStats(items, sizeBytes float64)
}

// Manager caches encoded PNG images. A disabled Manager never stores
// anything.
type Manager struct {
	cache    *LRU[[]byte]
	logger   logging.ContextLogger
	enabled  bool
	ttl      time.Duration
	observer Observer
}

// NewManager creates a cache manager from cfg. A nil or disabled cfg yields a
// pass-through manager.
func NewManager(cfg *config.CacheConfig, logger logging.ContextLogger) *Manager {
	if cfg == nil || !cfg.Enabled {
		return &Manager{logger: logger}
	}
	return &Manager{
		cache:   NewLRU[[]byte](cfg.MaxItems, cfg.MaxSizeBytes),
		logger:  logger,
		enabled: true,
		ttl:     time.Duration(cfg.TTLSeconds) * time.Second,
	}
}

// SetObserver attaches a metrics observer.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

// CacheKey hashes k into a hex SHA-256 string.
func (m *Manager) CacheKey(k Key) (string, error) {
	data, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get returns a copy of the cached image for key.
func (m *Manager) Get(key string) ([]byte, bool) {
	if !m.enabled {
		return nil, false
	}

	png, ok := m.cache.Get(key)
	if m.observer != nil {
		if ok {
			m.observer.RecordCacheHit()
		} else {
			m.observer.RecordCacheMiss()
		}
	}
	if !ok {
		return nil, false
	}
	m.logger.Debug("Render cache hit", "key", shortKey(key))
	return append([]byte(nil), png...), true
}

// Put stores a copy of png under key.
func (m *Manager) Put(key string, png []byte) {
	if !m.enabled {
		return
	}

	stored := append([]byte(nil), png...)
	m.cache.Put(key, stored, int64(len(stored)), m.ttl)
	m.logger.Debug("Cached render", "key", shortKey(key), "size", len(stored))

	if m.observer != nil {
		m.observer.SetCacheStats(float64(m.cache.Len()), float64(m.cache.Size()))
	}
}

func (m *Manager) Stats() Stats {
	if !m.enabled {
		return Stats{}
	}
	return m.cache.Stats()
}

func (m *Manager) Clear() {
	if m.enabled {
		m.cache.Clear()
		if m.observer != nil {
			m.observer.SetCacheStats(0, 0)
		}
	}
}

func (m *Manager) IsEnabled() bool {
	return m.enabled
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

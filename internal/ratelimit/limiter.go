// Package ratelimit throttles render requests with token buckets: one shared
// bucket, one per tool and a pair per client.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/config"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
)

// ErrLimited is wrapped by every rejection from Allow.
var ErrLimited = errors.New("rate limit exceeded")

const (
	cleanupInterval = 5 * time.Minute
	staleTimeout    = 30 * time.Minute
)

// Limiter applies the configured limits. A nil *Limiter allows everything.
type Limiter struct {
	logger       logging.ContextLogger
	config       *config.RateLimitConfig
	globalBucket *TokenBucket
	toolBuckets  map[string]*TokenBucket
	clientLimits map[string]*clientRateLimit
	mu           sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

type clientRateLimit struct {
	globalBucket *TokenBucket
	toolBuckets  map[string]*TokenBucket
	lastSeen     time.Time
}

// NewLimiter returns nil when cfg is nil or disabled.
func NewLimiter(cfg *config.RateLimitConfig, logger logging.ContextLogger) *Limiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	limiter := &Limiter{
		logger:       logger,
		config:       cfg,
		globalBucket: NewTokenBucket(cfg.BurstSize, perSecond(cfg.RequestsPerMin)),
		toolBuckets:  make(map[string]*TokenBucket),
		clientLimits: make(map[string]*clientRateLimit),
		stop:         make(chan struct{}),
	}
	for tool, limit := range cfg.PerToolLimits {
		limiter.toolBuckets[tool] = limiter.newToolBucket(limit)
	}

	go limiter.cleanupLoop()
	return limiter
}

func perSecond(perMinute int) float64 {
	return float64(perMinute) / 60.0
}

// newToolBucket scales the burst by the tool's share of the global rate.
func (l *Limiter) newToolBucket(limit int) *TokenBucket {
	burst := 1
	if l.config.RequestsPerMin > 0 {
		burst = (l.config.BurstSize * limit) / l.config.RequestsPerMin
	}
	if burst < 1 {
		burst = 1
	}
	return NewTokenBucket(burst, perSecond(limit))
}

// Allow consumes one token from each applicable bucket. On rejection any
// tokens already taken are returned and the error wraps ErrLimited.
func (l *Limiter) Allow(clientID, toolName string) (bool, error) {
	if l == nil {
		return true, nil
	}

	if !l.globalBucket.Allow(1) {
		l.logger.Warn("Global rate limit exceeded", "client", clientID, "tool", toolName)
		return false, fmt.Errorf("global %w", ErrLimited)
	}

	l.mu.RLock()
	toolBucket, hasToolLimit := l.toolBuckets[toolName]
	l.mu.RUnlock()

	if hasToolLimit && !toolBucket.Allow(1) {
		l.globalBucket.Allow(-1)
		l.logger.Warn("Tool rate limit exceeded", "client", clientID, "tool", toolName)
		return false, fmt.Errorf("%w for tool %s", ErrLimited, toolName)
	}

	if clientID != "" {
		if err := l.checkClientLimit(clientID, toolName); err != nil {
			l.globalBucket.Allow(-1)
			if hasToolLimit {
				toolBucket.Allow(-1)
			}
			return false, err
		}
	}

	return true, nil
}

func (l *Limiter) checkClientLimit(clientID, toolName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	client, exists := l.clientLimits[clientID]
	if !exists {
		client = &clientRateLimit{
			globalBucket: NewTokenBucket(l.config.BurstSize, perSecond(l.config.RequestsPerMin)),
			toolBuckets:  make(map[string]*TokenBucket),
		}
		l.clientLimits[clientID] = client
	}
	client.lastSeen = time.Now()

	if !client.globalBucket.Allow(1) {
		l.logger.Warn("Client rate limit exceeded", "client", clientID, "tool", toolName)
		return fmt.Errorf("client %w", ErrLimited)
	}

	limit, hasLimit := l.config.PerToolLimits[toolName]
	if !hasLimit {
		return nil
	}
	toolBucket, exists := client.toolBuckets[toolName]
	if !exists {
		toolBucket = l.newToolBucket(limit)
		client.toolBuckets[toolName] = toolBucket
	}
	if !toolBucket.Allow(1) {
		client.globalBucket.Allow(-1)
		l.logger.Warn("Client tool rate limit exceeded", "client", clientID, "tool", toolName)
		return fmt.Errorf("client %w for tool %s", ErrLimited, toolName)
	}
	return nil
}

// RetryAfter estimates how long until toolName would be allowed again,
// taking the longest of the global and tool bucket waits. It consumes nothing.
func (l *Limiter) RetryAfter(toolName string) time.Duration {
	if l == nil {
		return 0
	}

	wait := l.globalBucket.Delay(1)
	l.mu.RLock()
	toolBucket, ok := l.toolBuckets[toolName]
	l.mu.RUnlock()
	if ok {
		if d := toolBucket.Delay(1); d > wait {
			wait = d
		}
	}
	return wait
}

// Reset refills every bucket.
func (l *Limiter) Reset() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalBucket.Reset()
	for _, bucket := range l.toolBuckets {
		bucket.Reset()
	}
	for _, client := range l.clientLimits {
		client.globalBucket.Reset()
		for _, bucket := range client.toolBuckets {
			bucket.Reset()
		}
	}
}

// Close stops the background cleanup.
func (l *Limiter) Close() {
	if l == nil {
		return
	}
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			l.removeStaleClients(now)
		case <-l.stop:
			return
		}
	}
}

// removeStaleClients drops clients not seen for staleTimeout before now.
func (l *Limiter) removeStaleClients(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for clientID, client := range l.clientLimits {
		if now.Sub(client.lastSeen) > staleTimeout {
			delete(l.clientLimits, clientID)
			removed++
			l.logger.Debug("Removed stale client rate limit tracking", "client", clientID)
		}
	}
	return removed
}

// GetStatus reports limits and remaining tokens for the status tool.
func (l *Limiter) GetStatus() map[string]interface{} {
	if l == nil {
		return map[string]interface{}{"enabled": false}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	toolLimits := make(map[string]interface{}, len(l.toolBuckets))
	for tool, bucket := range l.toolBuckets {
		toolLimits[tool] = map[string]interface{}{
			"limit":  l.config.PerToolLimits[tool],
			"tokens": bucket.Tokens(),
		}
	}

	return map[string]interface{}{
		"enabled":        true,
		"requestsPerMin": l.config.RequestsPerMin,
		"burstSize":      l.config.BurstSize,
		"globalTokens":   l.globalBucket.Tokens(),
		"activeClients":  len(l.clientLimits),
		"toolLimits":     toolLimits,
	}
}

// Package metrics records tool, render and HTTP measurements, both as
// in-process summaries and as Prometheus series.
package metrics

import (
	"sync"
	"time"
)

const keepDurations = 100

// Collector keeps in-process counters for the status tool.
type Collector struct {
	mu sync.RWMutex

	toolCalls     map[string]int64
	toolErrors    map[string]int64
	toolDurations map[string][]time.Duration

	rateLimitHits  int64
	rateLimitTotal int64

	renders      map[string]int64
	renderErrors int64
	captured     int64
	dropped      int64
}

func NewCollector() *Collector {
	return &Collector{
		toolCalls:     make(map[string]int64),
		toolErrors:    make(map[string]int64),
		toolDurations: make(map[string][]time.Duration),
		renders:       make(map[string]int64),
	}
}

// RecordToolCall records a tool call with its status and duration.
func (c *Collector) RecordToolCall(tool, status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls[tool]++
	switch status {
	case "error":
		c.toolErrors[tool]++
	case "rate_limited":
		c.rateLimitHits++
	}
	c.rateLimitTotal++

	durations := append(c.toolDurations[tool], duration)
	if len(durations) > keepDurations {
		durations = durations[1:]
	}
	c.toolDurations[tool] = durations
}

// RecordRender counts renders per theme.
func (c *Collector) RecordRender(theme, mode, status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status != "success" {
		c.renderErrors++
		return
	}
	c.renders[theme]++
}

func (c *Collector) RecordRenderStage(string, time.Duration) {}

func (c *Collector) RecordBoardStats(captured, dropped, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captured += int64(captured)
	c.dropped += int64(dropped)
}

// GetStats returns a snapshot suitable for JSON output.
func (c *Collector) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make(map[string]interface{})

	toolStats := make(map[string]interface{})
	for tool, calls := range c.toolCalls {
		errors := c.toolErrors[tool]
		errorRate := float64(0)
		if calls > 0 {
			errorRate = float64(errors) / float64(calls)
		}

		var total time.Duration
		durations := c.toolDurations[tool]
		for _, d := range durations {
			total += d
		}
		avg := time.Duration(0)
		if len(durations) > 0 {
			avg = total / time.Duration(len(durations))
		}

		toolStats[tool] = map[string]interface{}{
			"calls":           calls,
			"errors":          errors,
			"error_rate":      errorRate,
			"avg_duration_ms": avg.Milliseconds(),
		}
	}
	stats["tools"] = toolStats

	rateLimitRate := float64(0)
	if c.rateLimitTotal > 0 {
		rateLimitRate = float64(c.rateLimitHits) / float64(c.rateLimitTotal)
	}
	stats["rate_limits"] = map[string]interface{}{
		"hits":  c.rateLimitHits,
		"total": c.rateLimitTotal,
		"rate":  rateLimitRate,
	}

	byTheme := make(map[string]int64, len(c.renders))
	for theme, n := range c.renders {
		byTheme[theme] = n
	}
	stats["renders"] = map[string]interface{}{
		"by_theme":        byTheme,
		"errors":          c.renderErrors,
		"captured_stones": c.captured,
		"dropped_moves":   c.dropped,
	}

	return stats
}

// Reset clears all metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls = make(map[string]int64)
	c.toolErrors = make(map[string]int64)
	c.toolDurations = make(map[string][]time.Duration)
	c.rateLimitHits = 0
	c.rateLimitTotal = 0
	c.renders = make(map[string]int64)
	c.renderErrors = 0
	c.captured = 0
	c.dropped = 0
}

// RenderRecorder is the set of render measurements a Renderer reports.
type RenderRecorder interface {
	RecordRender(theme, mode, status string, duration time.Duration)
	RecordRenderStage(stage string, duration time.Duration)
	RecordBoardStats(captured, dropped, skipped int)
}

var (
	_ RenderRecorder = (*Collector)(nil)
	_ RenderRecorder = (*PrometheusCollector)(nil)
	_ RenderRecorder = Recorders(nil)
)

// Recorders forwards every measurement to each of its members.
type Recorders []RenderRecorder

func (rs Recorders) RecordRender(theme, mode, status string, duration time.Duration) {
	for _, r := range rs {
		r.RecordRender(theme, mode, status, duration)
	}
}

func (rs Recorders) RecordRenderStage(stage string, duration time.Duration) {
	for _, r := range rs {
		r.RecordRenderStage(stage, duration)
	}
}

func (rs Recorders) RecordBoardStats(captured, dropped, skipped int) {
	for _, r := range rs {
		r.RecordBoardStats(captured, dropped, skipped)
	}
}

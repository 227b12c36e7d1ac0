package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOnce     sync.Once
	prometheusInstance *PrometheusCollector
)

// PrometheusCollector exposes renderer metrics under the sgf_renderer_ prefix.
type PrometheusCollector struct {
	toolCallsTotal   *prometheus.CounterVec
	toolErrorsTotal  *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	rateLimitHitsTotal   *prometheus.CounterVec
	rateLimitChecksTotal prometheus.Counter

	rendersTotal        *prometheus.CounterVec
	renderDuration      *prometheus.HistogramVec
	renderStageDuration *prometheus.HistogramVec
	capturedStonesTotal prometheus.Counter
	droppedMovesTotal   prometheus.Counter
	skippedMovesTotal   prometheus.Counter
	assetsLoaded        prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheSize        prometheus.Gauge
	cacheItems       prometheus.Gauge
}

// NewPrometheusCollector returns the process-wide collector registered with
// the default registry.
func NewPrometheusCollector() *PrometheusCollector {
	prometheusOnce.Do(func() {
		prometheusInstance = NewPrometheusCollectorWithRegistry(prometheus.DefaultRegisterer)
	})
	return prometheusInstance
}

// NewPrometheusCollectorWithRegistry registers a fresh set of metrics with reg.
func NewPrometheusCollectorWithRegistry(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		toolCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgf_renderer_tool_calls_total",
				Help: "Total number of MCP tool calls",
			},
			[]string{"tool", "status"},
		),
		toolErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgf_renderer_tool_errors_total",
				Help: "Total number of MCP tool errors",
			},
			[]string{"tool", "error_type"},
		),
		toolDurationSecs: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgf_renderer_tool_duration_seconds",
				Help:    "Duration of MCP tool calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),

		rateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgf_renderer_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"client", "tool"},
		),
		rateLimitChecksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_rate_limit_checks_total",
				Help: "Total number of rate limit checks",
			},
		),

		rendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgf_renderer_renders_total",
				Help: "Total number of board renders",
			},
			[]string{"theme", "mode", "status"},
		),
		renderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgf_renderer_render_duration_seconds",
				Help:    "End to end render duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"theme"},
		),
		renderStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgf_renderer_render_stage_duration_seconds",
				Help:    "Duration of each render stage in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"stage"},
		),
		capturedStonesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_captured_stones_total",
				Help: "Total number of stones removed by captures during replay",
			},
		),
		droppedMovesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_dropped_moves_total",
				Help: "Total number of move properties the parser could not decode",
			},
		),
		skippedMovesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_skipped_moves_total",
				Help: "Total number of moves outside the board",
			},
		),
		assetsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sgf_renderer_assets_loaded",
				Help: "Whether board and stone images are loaded (1) or not (0)",
			},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sgf_renderer_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sgf_renderer_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_cache_hits_total",
				Help: "Total number of render cache hits",
			},
		),
		cacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sgf_renderer_cache_misses_total",
				Help: "Total number of render cache misses",
			},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sgf_renderer_cache_size_bytes",
				Help: "Current render cache size in bytes",
			},
		),
		cacheItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sgf_renderer_cache_items",
				Help: "Current number of images in the render cache",
			},
		),
	}
}

// RecordToolCall records a tool call metric.
func (p *PrometheusCollector) RecordToolCall(tool, status string, durationSecs float64) {
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
	p.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)

	if status == "error" {
		p.toolErrorsTotal.WithLabelValues(tool, "general").Inc()
	}
}

// RecordRateLimit records a rate limit check and whether it was rejected.
func (p *PrometheusCollector) RecordRateLimit(client, tool string, hit bool) {
	p.rateLimitChecksTotal.Inc()
	if hit {
		p.rateLimitHitsTotal.WithLabelValues(client, tool).Inc()
	}
}

// RecordRender counts one render and observes its total duration.
func (p *PrometheusCollector) RecordRender(theme, mode, status string, duration time.Duration) {
	p.rendersTotal.WithLabelValues(theme, mode, status).Inc()
	p.renderDuration.WithLabelValues(theme).Observe(duration.Seconds())
}

// RecordRenderStage observes the time spent in one pipeline stage.
func (p *PrometheusCollector) RecordRenderStage(stage string, duration time.Duration) {
	p.renderStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordBoardStats adds the per-render replay counts.
func (p *PrometheusCollector) RecordBoardStats(captured, dropped, skipped int) {
	p.capturedStonesTotal.Add(float64(captured))
	p.droppedMovesTotal.Add(float64(dropped))
	p.skippedMovesTotal.Add(float64(skipped))
}

// SetAssetsLoaded records the asset store state.
func (p *PrometheusCollector) SetAssetsLoaded(ok bool) {
	if ok {
		p.assetsLoaded.Set(1)
		return
	}
	p.assetsLoaded.Set(0)
}

// RecordHTTPRequest records an HTTP request.
func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, durationSecs float64) {
	p.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}

func (p *PrometheusCollector) RecordCacheHit() {
	p.cacheHitsTotal.Inc()
}

func (p *PrometheusCollector) RecordCacheMiss() {
	p.cacheMissesTotal.Inc()
}

// SetCacheStats sets the current cache statistics.
func (p *PrometheusCollector) SetCacheStats(items, sizeBytes float64) {
	p.cacheItems.Set(items)
	p.cacheSize.Set(sizeBytes)
}

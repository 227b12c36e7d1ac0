package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/metrics"
	"github.com/dmmcquay/sgf-renderer/internal/ratelimit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Middleware wraps MCP tool handlers with rate limiting, metrics and logging.
type Middleware struct {
	logger      logging.ContextLogger
	metrics     *metrics.Collector
	prometheus  *metrics.PrometheusCollector
	rateLimiter *ratelimit.Limiter
}

// NewMiddleware creates a new middleware instance. rateLimiter may be nil.
func NewMiddleware(logger logging.ContextLogger, metrics *metrics.Collector, rateLimiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rateLimiter,
	}
}

// SetPrometheus also reports tool calls to Prometheus.
func (m *Middleware) SetPrometheus(p *metrics.PrometheusCollector) {
	m.prometheus = p
}

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler = server.ToolHandlerFunc

// WrapTool wraps a tool handler with middleware functionality. Each call gets
// fresh correlation and request ids.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx = logging.EnsureIDs(ctx)
		clientID := extractClientID(ctx, request)
		logger := m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tool":   toolName,
			"client": clientID,
		})

		logger.Debug("Tool request received")

		if m.rateLimiter != nil {
			allowed, err := m.rateLimiter.Allow(clientID, toolName)
			if m.prometheus != nil {
				m.prometheus.RecordRateLimit(clientID, toolName, !allowed)
			}
			if !allowed {
				logger.Warn("Rate limit exceeded", "error", err)
				m.record(toolName, "rate_limited", time.Since(start))
				return nil, fmt.Errorf("tool %s: %w", toolName, err)
			}
		}

		result, err := handler(ctx, request)

		status := "success"
		switch {
		case err != nil:
			status = "error"
			logger.Error("Tool request failed", "error", err, "duration", time.Since(start))
		case result != nil && result.IsError:
			status = "invalid"
			logger.Info("Tool request rejected", "duration", time.Since(start))
		default:
			logger.Info("Tool request completed", "duration", time.Since(start))
		}
		m.record(toolName, status, time.Since(start))

		return result, err
	}
}

func (m *Middleware) record(toolName, status string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordToolCall(toolName, status, d)
	}
	if m.prometheus != nil {
		m.prometheus.RecordToolCall(toolName, status, d.Seconds())
	}
}

type clientIDKey struct{}

// ContextWithClientID tags ctx with a caller identity for rate limiting.
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// extractClientID prefers an explicit id on the context, then the MCP
// session, then a clientID argument.
func extractClientID(ctx context.Context, request mcp.CallToolRequest) string {
	if clientID, ok := ctx.Value(clientIDKey{}).(string); ok && clientID != "" {
		return clientID
	}

	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}

	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if clientID, ok := args["clientID"].(string); ok && clientID != "" {
			return clientID
		}
	}

	return "anonymous"
}

// Package mcp exposes the renderer as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmmcquay/sgf-renderer/internal/health"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/metrics"
	"github.com/dmmcquay/sgf-renderer/internal/ratelimit"
	"github.com/dmmcquay/sgf-renderer/internal/render"
	"github.com/dmmcquay/sgf-renderer/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatusSources feeds the getRendererStatus tool. Every field is optional.
type StatusSources struct {
	Version   string
	GitCommit string
	Collector *metrics.Collector
	Limiter   *ratelimit.Limiter
	Checker   *health.Checker
}

// ToolsHandler manages the MCP tools.
type ToolsHandler struct {
	svc        *service.Service
	logger     logging.ContextLogger
	middleware *Middleware
	status     StatusSources
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(svc *service.Service, logger logging.ContextLogger) *ToolsHandler {
	return &ToolsHandler{
		svc:    svc,
		logger: logger,
	}
}

// SetMiddleware sets the middleware for the tools handler.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
}

// SetStatusSources sets what getRendererStatus reports on.
func (h *ToolsHandler) SetStatusSources(status StatusSources) {
	h.status = status
}

func themeNames() []string {
	names := make([]string, len(render.Themes))
	for i, t := range render.Themes {
		names[i] = t.String()
	}
	return names
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	renderTool := mcp.NewTool("renderBoard",
		mcp.WithDescription("Render the main line of an SGF game record as a PNG board diagram."),
		mcp.WithString("sgf",
			mcp.Description("SGF game record"),
			mcp.Required(),
		),
		mcp.WithString("theme",
			mcp.Description(fmt.Sprintf("Board theme (default: %s)", h.svc.DefaultTheme())),
			mcp.Enum(themeNames()...),
		),
		mcp.WithBoolean("kifu",
			mcp.Description("Number every move and keep captured stones visible"),
		),
		mcp.WithNumber("moves",
			mcp.Description("Only replay this many moves (default: all)"),
			mcp.Min(0),
		),
		mcp.WithString("output",
			mcp.Description("Write the PNG to this path instead of returning it"),
		),
	)
	s.AddTool(renderTool, h.wrap("renderBoard", h.HandleRenderBoard))

	describeTool := mcp.NewTool("describeBoard",
		mcp.WithDescription("Replay an SGF game record and describe the final position as text: stones, captures and a board diagram."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("sgf",
			mcp.Description("SGF game record"),
			mcp.Required(),
		),
		mcp.WithNumber("moves",
			mcp.Description("Only replay this many moves (default: all)"),
			mcp.Min(0),
		),
	)
	s.AddTool(describeTool, h.wrap("describeBoard", h.HandleDescribeBoard))

	statusTool := mcp.NewTool("getRendererStatus",
		mcp.WithDescription("Report renderer health, cache, usage and rate limit status"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(statusTool, h.wrap("getRendererStatus", h.HandleGetRendererStatus))
}

func (h *ToolsHandler) wrap(name string, handler ToolHandler) ToolHandler {
	if h.middleware == nil {
		return handler
	}
	return h.middleware.WrapTool(name, handler)
}

// params reads the shared arguments. Only moves is validated here; the
// service checks the rest.
func params(request mcp.CallToolRequest) (service.Params, error) {
	p := service.Params{
		Notation: request.GetString("sgf", ""),
		Theme:    request.GetString("theme", ""),
		Kifu:     request.GetBool("kifu", false),
	}
	if _, ok := request.GetArguments()["moves"]; ok {
		n, err := request.RequireInt("moves")
		if err != nil {
			return p, err
		}
		p.MoveLimit = &n
	}
	return p, nil
}

// toolError turns caller mistakes into an error result the model can read
// and passes everything else through as a protocol error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if service.IsClientError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

// HandleRenderBoard handles the renderBoard tool.
func (h *ToolsHandler) HandleRenderBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := h.logger.WithContext(ctx).WithField("tool", "renderBoard")

	p, err := params(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if output := request.GetString("output", ""); output != "" {
		img, err := h.svc.RenderToFile(ctx, p, output)
		if err != nil {
			return toolError(err)
		}
		logger.Info("Wrote diagram", "path", output, "bytes", len(img.PNG))
		return mcp.NewToolResultText(fmt.Sprintf("Wrote %d bytes to %s\n%s",
			len(img.PNG), output, formatSummary(img.Summary))), nil
	}

	img, err := h.svc.Render(ctx, p)
	if err != nil {
		return toolError(err)
	}
	logger.Debug("Rendered diagram", "bytes", len(img.PNG), "cached", img.Cached)

	text := fmt.Sprintf("Theme: %s\n%s", img.Theme, formatSummary(img.Summary))
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(img.PNG), "image/png"), nil
}

// HandleDescribeBoard handles the describeBoard tool.
func (h *ToolsHandler) HandleDescribeBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := params(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	desc, err := h.svc.Describe(ctx, p)
	if err != nil {
		return toolError(err)
	}

	var b strings.Builder
	b.WriteString(formatSummary(desc.Summary))
	if len(desc.CaptureOrder) > 0 {
		b.WriteString("\nCaptured stones:\n")
		for _, c := range desc.CaptureOrder {
			fmt.Fprintf(&b, "  %s by move %d\n", c.Stone, c.By)
		}
	}
	b.WriteString("\n")
	b.WriteString(desc.Board)
	return mcp.NewToolResultText(b.String()), nil
}

func formatSummary(sum service.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Board: %s\n", sum.Size)
	fmt.Fprintf(&b, "Moves: %d of %d", sum.Moves, sum.TotalMoves)
	if sum.Dropped > 0 {
		fmt.Fprintf(&b, " (%d malformed dropped)", sum.Dropped)
	}
	if sum.Skipped > 0 {
		fmt.Fprintf(&b, " (%d off-board skipped)", sum.Skipped)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Stones on board: %d\n", sum.Stones)
	fmt.Fprintf(&b, "Captures: black took %d, white took %d\n", sum.Captures.ByBlack, sum.Captures.ByWhite)
	if sum.LastMove != "" {
		fmt.Fprintf(&b, "Last move: %s\n", sum.LastMove)
	}
	if sum.SizeWarning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", sum.SizeWarning)
	}
	return b.String()
}

// HandleGetRendererStatus handles the getRendererStatus tool.
func (h *ToolsHandler) HandleGetRendererStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString("SGF Renderer Status\n")
	b.WriteString("===================\n")
	if h.status.Version != "" {
		fmt.Fprintf(&b, "Version: %s\n", h.status.Version)
	}
	if h.status.GitCommit != "" {
		fmt.Fprintf(&b, "Git Commit: %s\n", h.status.GitCommit)
	}
	fmt.Fprintf(&b, "Default theme: %s\n", h.svc.DefaultTheme())

	if h.status.Checker != nil {
		resp := h.status.Checker.CheckHealth(ctx)
		fmt.Fprintf(&b, "\nHealth: %s\n", resp.Status)
		for _, c := range resp.Components {
			fmt.Fprintf(&b, "  %s: %s", c.Name, c.Status)
			if c.Message != "" {
				fmt.Fprintf(&b, " (%s)", c.Message)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCache:\n")
	if images := h.svc.Cache(); images.IsEnabled() {
		stats := images.Stats()
		fmt.Fprintf(&b, "  Items: %d (%d bytes)\n", stats.Items, stats.Size)
		fmt.Fprintf(&b, "  Hits: %d, misses: %d, hit rate: %.2f\n", stats.Hits, stats.Misses, stats.HitRate)
	} else {
		b.WriteString("  Enabled: false\n")
	}

	if h.status.Collector != nil {
		stats := h.status.Collector.GetStats()
		if renders, ok := stats["renders"].(map[string]interface{}); ok {
			b.WriteString("\nRenders:\n")
			if byTheme, ok := renders["by_theme"].(map[string]int64); ok {
				themes := make([]string, 0, len(byTheme))
				for theme := range byTheme {
					themes = append(themes, theme)
				}
				sort.Strings(themes)
				for _, theme := range themes {
					fmt.Fprintf(&b, "  %s: %d\n", theme, byTheme[theme])
				}
			}
			fmt.Fprintf(&b, "  Errors: %v\n", renders["errors"])
			fmt.Fprintf(&b, "  Captured stones: %v\n", renders["captured_stones"])
		}
		if tools, ok := stats["tools"].(map[string]interface{}); ok && len(tools) > 0 {
			data, err := json.MarshalIndent(tools, "  ", "  ")
			if err == nil {
				fmt.Fprintf(&b, "\nTool calls:\n  %s\n", data)
			}
		}
	}

	rlStatus := h.status.Limiter.GetStatus()
	b.WriteString("\nRate Limiting:\n")
	fmt.Fprintf(&b, "  Enabled: %v\n", rlStatus["enabled"])
	if enabled, ok := rlStatus["enabled"].(bool); ok && enabled {
		fmt.Fprintf(&b, "  Requests/min: %d\n", rlStatus["requestsPerMin"])
		fmt.Fprintf(&b, "  Burst size: %d\n", rlStatus["burstSize"])
		fmt.Fprintf(&b, "  Active clients: %d\n", rlStatus["activeClients"])
	}

	return mcp.NewToolResultText(b.String()), nil
}

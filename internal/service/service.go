// Package service is the request layer shared by the CLI, the HTTP API and
// the MCP tools. It validates parameters, consults the image cache and turns
// replay results into summaries.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmmcquay/sgf-renderer/internal/board"
	"github.com/dmmcquay/sgf-renderer/internal/cache"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/render"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

// ErrInvalidRequest marks caller mistakes, as opposed to render failures.
var ErrInvalidRequest = errors.New("invalid request")

// Params is a render or describe request as received from a caller.
type Params struct {
	Notation string `json:"sgf"`
	// Theme is a theme name. Empty selects the configured default.
	Theme string `json:"theme,omitempty"`
	Kifu  bool   `json:"kifu,omitempty"`
	// MoveLimit is a pointer so that 0 (an empty board) differs from unset.
	MoveLimit *int `json:"moves,omitempty"`
}

// Captures counts stones taken by each color.
type Captures struct {
	ByBlack int `json:"byBlack"`
	ByWhite int `json:"byWhite"`
}

// Summary describes a replayed game record.
type Summary struct {
	Size        string   `json:"size"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Moves       int      `json:"moves"`
	TotalMoves  int      `json:"totalMoves"`
	Dropped     int      `json:"dropped"`
	Skipped     int      `json:"skipped"`
	Stones      int      `json:"stones"`
	Captures    Captures `json:"captures"`
	LastMove    string   `json:"lastMove,omitempty"`
	SizeWarning string   `json:"sizeWarning,omitempty"`
}

// CaptureInfo is one captured stone and the move number that took it.
type CaptureInfo struct {
	Stone string `json:"stone"`
	By    int    `json:"by"`
}

// Description is a text rendering of the final position.
type Description struct {
	Summary
	Board        string        `json:"board"`
	CaptureOrder []CaptureInfo `json:"captureOrder"`
}

// Image is a rendered diagram.
type Image struct {
	PNG     []byte
	Theme   render.Theme
	Cached  bool
	Summary Summary
}

// Service renders and describes game records.
type Service struct {
	renderer     *render.Renderer
	cache        *cache.Manager
	defaultTheme render.Theme
	logger       logging.ContextLogger
}

// New creates a Service. A nil cache disables caching.
func New(renderer *render.Renderer, images *cache.Manager, defaultTheme render.Theme, logger logging.ContextLogger) *Service {
	if images == nil {
		images = cache.NewManager(nil, logger)
	}
	return &Service{
		renderer:     renderer,
		cache:        images,
		defaultTheme: defaultTheme,
		logger:       logger,
	}
}

// Cache returns the image cache.
func (s *Service) Cache() *cache.Manager {
	return s.cache
}

// DefaultTheme returns the theme used when a request names none.
func (s *Service) DefaultTheme() render.Theme {
	return s.defaultTheme
}

func (s *Service) request(p Params) (render.Request, error) {
	if strings.TrimSpace(p.Notation) == "" {
		return render.Request{}, fmt.Errorf("%w: sgf is required", ErrInvalidRequest)
	}

	theme := s.defaultTheme
	if p.Theme != "" {
		t, err := render.ParseTheme(p.Theme)
		if err != nil {
			return render.Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		theme = t
	}

	limit := sgf.NoLimit
	if p.MoveLimit != nil {
		if *p.MoveLimit < 0 {
			return render.Request{}, fmt.Errorf("%w: moves must not be negative", ErrInvalidRequest)
		}
		limit = *p.MoveLimit
	}

	return render.Request{
		Notation:  p.Notation,
		Theme:     theme,
		Kifu:      p.Kifu,
		MoveLimit: limit,
	}, nil
}

// Render returns the PNG for p, from the cache when possible.
func (s *Service) Render(ctx context.Context, p Params) (*Image, error) {
	req, err := s.request(p)
	if err != nil {
		return nil, err
	}

	key, err := s.cache.CacheKey(cache.Key{
		Notation:  req.Notation,
		Theme:     req.Theme.String(),
		Kifu:      req.Kifu,
		MoveLimit: req.MoveLimit,
		Canvas:    s.renderer.Canvas(),
	})
	if err != nil {
		return nil, err
	}

	if png, ok := s.cache.Get(key); ok {
		rec, res, err := s.renderer.Replay(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Image{PNG: png, Theme: req.Theme, Cached: true, Summary: summarize(rec, res)}, nil
	}

	out, err := s.renderer.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cache.Put(key, out.PNG)

	return &Image{PNG: out.PNG, Theme: req.Theme, Summary: summarize(out.Record, out.Result)}, nil
}

// RenderToFile renders p and writes the image to dest. The cache is not
// consulted.
func (s *Service) RenderToFile(ctx context.Context, p Params, dest string) (*Image, error) {
	req, err := s.request(p)
	if err != nil {
		return nil, err
	}
	out, err := s.renderer.RenderToFile(ctx, req, dest)
	if err != nil {
		return nil, err
	}
	return &Image{PNG: out.PNG, Theme: req.Theme, Summary: summarize(out.Record, out.Result)}, nil
}

// Describe replays p without drawing.
func (s *Service) Describe(ctx context.Context, p Params) (*Description, error) {
	req, err := s.request(p)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec, res, err := s.renderer.Replay(ctx, req)
	if err != nil {
		return nil, err
	}

	order := make([]CaptureInfo, 0, len(res.Captured))
	for _, c := range res.Captured {
		order = append(order, CaptureInfo{Stone: c.Stone.String(), By: c.By + 1})
	}
	return &Description{
		Summary:      summarize(rec, res),
		Board:        res.Board.String(),
		CaptureOrder: order,
	}, nil
}

// IsClientError reports whether err was caused by the request itself: bad
// parameters or notation that cannot be parsed.
func IsClientError(err error) bool {
	if errors.Is(err, ErrInvalidRequest) {
		return true
	}
	stage, ok := render.StageOf(err)
	return ok && stage == render.StageParse
}

func summarize(rec *sgf.Record, res *board.Result) Summary {
	sum := Summary{
		Size:       rec.Size.String(),
		Width:      rec.Size.Width,
		Height:     rec.Size.Height,
		Moves:      len(rec.Moves),
		TotalMoves: rec.Total,
		Dropped:    rec.Dropped,
		Skipped:    res.Skipped,
		Stones:     res.Board.Len(),
		Captures: Captures{
			ByBlack: res.CapturedBy(sgf.Black),
			ByWhite: res.CapturedBy(sgf.White),
		},
	}
	if n := len(res.Placed); n > 0 {
		sum.LastMove = res.Placed[n-1].String()
	}
	if rec.SizeErr != nil {
		sum.SizeWarning = rec.SizeErr.Error()
	}
	return sum
}

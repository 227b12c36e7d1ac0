// Package render turns a game record into a PNG board diagram.
package render

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/dmmcquay/sgf-renderer/internal/board"
	"github.com/dmmcquay/sgf-renderer/internal/layout"
	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/retry"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

// Recorder receives render measurements. metrics.PrometheusCollector
// implements it.
type Recorder interface {
	RecordRender(theme, mode, status string, duration time.Duration)
	RecordRenderStage(stage string, duration time.Duration)
	RecordBoardStats(captured, dropped, skipped int)
}

// Options configures a Renderer.
type Options struct {
	Canvas     int
	AssetDir   string
	FontPath   string
	WriteRetry retry.Config
}

// Renderer runs the parse, replay, layout, draw and encode pipeline. It holds
// no per-request state and is safe for concurrent use.
type Renderer struct {
	canvas   int
	assets   *AssetStore
	retry    *retry.Manager
	logger   logging.ContextLogger
	recorder Recorder
}

// New creates a Renderer. Assets are loaded on the first render.
func New(opts Options, logger logging.ContextLogger) *Renderer {
	canvas := opts.Canvas
	if canvas <= 0 {
		canvas = layout.DefaultCanvas
	}
	writeRetry := opts.WriteRetry
	if writeRetry.MaxAttempts <= 0 {
		writeRetry = retry.FileWriteConfig(0)
	}

	r := &Renderer{
		canvas: canvas,
		assets: NewAssetStore(opts.AssetDir, opts.FontPath),
		retry:  retry.NewManager(writeRetry),
		logger: logger,
	}
	r.retry.OnRetry(func(attempt int, err error, delay time.Duration) {
		r.logger.Warn("Write attempt %d failed, retrying in %v: %v", attempt, delay, err)
	})
	return r
}

// SetRecorder attaches a metrics recorder.
func (r *Renderer) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Assets returns the shared asset store.
func (r *Renderer) Assets() *AssetStore {
	return r.assets
}

// Canvas returns the output image side length in pixels.
func (r *Renderer) Canvas() int {
	return r.canvas
}

// Request describes one diagram.
type Request struct {
	Notation string
	Theme    Theme
	// Kifu numbers every placement and keeps captured stones visible.
	Kifu bool
	// MoveLimit keeps the first MoveLimit moves. sgf.NoLimit, or any
	// negative value, replays the whole main line.
	MoveLimit int
}

// Mode names the presentation mode for logs and metrics.
func (req Request) Mode() string {
	if req.Kifu {
		return "kifu"
	}
	return "final"
}

// Output is a rendered diagram and the intermediate results behind it.
type Output struct {
	PNG    []byte
	Record *sgf.Record
	Result *board.Result
	Layout layout.Layout
}

// Replay parses the notation and replays the main line without drawing.
func (r *Renderer) Replay(ctx context.Context, req Request) (*sgf.Record, *board.Result, error) {
	rec, err := sgf.Parse(req.Notation, req.MoveLimit)
	if err != nil {
		return nil, nil, stageError(StageParse, err)
	}
	logger := r.logger.WithContext(ctx)
	if rec.SizeErr != nil {
		logger.Warn("Using default board size %s: %v", rec.Size, rec.SizeErr)
	}
	if rec.Dropped > 0 {
		logger.Debug("Dropped %d malformed move(s)", rec.Dropped)
	}

	res := board.Replay(rec.Size, rec.Moves)
	if res.Skipped > 0 {
		logger.Debug("Skipped %d move(s) outside the %s board", res.Skipped, rec.Size)
	}
	return rec, res, nil
}

// Render produces a PNG for req. Failures are *RenderError values naming
// the stage that failed.
func (r *Renderer) Render(ctx context.Context, req Request) (*Output, error) {
	return r.run(ctx, req, "")
}

// RenderToFile renders req and has the surface replace dest with the image.
// The image is fully encoded before dest is touched. Write failures are
// retried.
func (r *Renderer) RenderToFile(ctx context.Context, req Request, dest string) (*Output, error) {
	out, err := r.run(ctx, req, dest)
	if err != nil {
		return nil, err
	}
	r.logger.WithContext(ctx).Info("Wrote %d byte image to %s", len(out.PNG), dest)
	return out, nil
}

func (r *Renderer) run(ctx context.Context, req Request, dest string) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := r.render(ctx, req, dest)
	status := "success"
	if err != nil {
		status = "error"
	}
	if r.recorder != nil {
		r.recorder.RecordRender(req.Theme.String(), req.Mode(), status, time.Since(start))
		if out != nil {
			r.recorder.RecordBoardStats(len(out.Result.Captured), out.Record.Dropped, out.Result.Skipped)
		}
	}

	logger := r.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"theme": req.Theme.String(),
		"mode":  req.Mode(),
	})
	if err != nil {
		logger.Error("Render failed: %v", err)
		return nil, err
	}
	logger.Debug("Rendered %s board with %d move(s) in %v", out.Record.Size, len(out.Record.Moves), time.Since(start))
	return out, nil
}

func (r *Renderer) render(ctx context.Context, req Request, dest string) (*Output, error) {
	var (
		rec *sgf.Record
		res *board.Result
	)
	err := r.timed(StageParse, func() error {
		var err error
		rec, res, err = r.Replay(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	l := layout.Compute(rec.Size, r.canvas)

	assets, err := r.assets.Get()
	if err != nil {
		return nil, stageError(StageAssets, err)
	}

	surface, err := NewRasterSurface(r.canvas, assets)
	if err != nil {
		return nil, stageError(StageSurface, err)
	}
	defer surface.Close()

	err = r.timed(StageSurface, func() error {
		return Draw(surface, Board{
			Layout: l,
			Stones: res.Visible(req.Kifu),
			Theme:  req.Theme,
			Kifu:   req.Kifu,
		})
	})
	if err != nil {
		return nil, stageError(StageSurface, err)
	}

	var data []byte
	err = r.timed(StageEncode, func() error {
		var err error
		data, err = surface.Encode()
		return err
	})
	if err != nil {
		return nil, stageError(StageEncode, err)
	}

	if dest != "" {
		if err := r.save(ctx, surface, dest); err != nil {
			return nil, stageError(StageWrite, err)
		}
	}

	return &Output{PNG: data, Record: rec, Result: res, Layout: l}, nil
}

func (r *Renderer) save(ctx context.Context, surface Surface, dest string) error {
	return r.timed(StageWrite, func() error {
		return r.retry.Run(ctx, func(context.Context) error {
			err := surface.EncodeAndSave(dest)
			if errors.Is(err, fs.ErrPermission) {
				return retry.Permanent(err)
			}
			return err
		})
	})
}

func (r *Renderer) timed(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	if r.recorder != nil {
		r.recorder.RecordRenderStage(string(stage), time.Since(start))
	}
	return err
}

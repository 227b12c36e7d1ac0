package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/sgf-renderer/internal/logging"
	"github.com/dmmcquay/sgf-renderer/internal/retry"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

const sampleGame = `(;GM[1]FF[4]CA[UTF-8]SZ[19]PB[Black]PW[White]KM[6.5]
;B[pd];W[dp];B[pq];W[dd];B[fq]C[approach]
(;W[cn];B[jp])
(;W[qo];B[qp]))`

type fakeRecorder struct {
	mu      sync.Mutex
	renders []string
	stages  map[string]int
	boards  int
}

func (f *fakeRecorder) RecordRender(theme, mode, status string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, theme+"/"+mode+"/"+status)
}

func (f *fakeRecorder) RecordRenderStage(stage string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stages == nil {
		f.stages = map[string]int{}
	}
	f.stages[stage]++
}

func (f *fakeRecorder) RecordBoardStats(captured, dropped, skipped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boards++
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	return New(Options{
		Canvas: 200,
		WriteRetry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
			Multiplier:   1,
		},
	}, logging.NewNopLogger())
}

func TestRenderProducesPNG(t *testing.T) {
	r := newTestRenderer(t)

	for _, theme := range Themes {
		for _, kifu := range []bool{false, true} {
			out, err := r.Render(context.Background(), Request{
				Notation:  sampleGame,
				Theme:     theme,
				Kifu:      kifu,
				MoveLimit: sgf.NoLimit,
			})
			require.NoError(t, err, "%v kifu=%v", theme, kifu)

			img, err := png.Decode(bytes.NewReader(out.PNG))
			require.NoError(t, err)
			assert.Equal(t, 200, img.Bounds().Dx())
			assert.Equal(t, 200, img.Bounds().Dy())
			assert.Len(t, out.Record.Moves, 5, "variations excluded")
		}
	}
}

func TestRenderMoveLimit(t *testing.T) {
	r := newTestRenderer(t)
	ctx := context.Background()

	limited, err := r.Render(ctx, Request{Notation: sampleGame, Theme: ThemePlain, MoveLimit: 2})
	require.NoError(t, err)
	truncated, err := r.Render(ctx, Request{Notation: "(;SZ[19];B[pd];W[dp])", Theme: ThemePlain, MoveLimit: sgf.NoLimit})
	require.NoError(t, err)

	assert.Equal(t, truncated.PNG, limited.PNG)
	assert.Equal(t, 5, limited.Record.Total)
}

func TestRenderDeterministicAndConcurrent(t *testing.T) {
	r := newTestRenderer(t)
	req := Request{Notation: sampleGame, Theme: ThemeDark, Kifu: true, MoveLimit: sgf.NoLimit}

	want, err := r.Render(context.Background(), req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Render(context.Background(), req)
			if assert.NoError(t, err) {
				assert.Equal(t, want.PNG, out.PNG)
			}
		}()
	}
	wg.Wait()
}

func TestRenderKifuDiffersFromFinal(t *testing.T) {
	r := newTestRenderer(t)
	ctx := context.Background()

	final, err := r.Render(ctx, Request{Notation: captureGame, Theme: ThemePaper, MoveLimit: sgf.NoLimit})
	require.NoError(t, err)
	kifu, err := r.Render(ctx, Request{Notation: captureGame, Theme: ThemePaper, Kifu: true, MoveLimit: sgf.NoLimit})
	require.NoError(t, err)

	assert.NotEqual(t, final.PNG, kifu.PNG)
	assert.Len(t, final.Result.Captured, 1)
}

func TestRenderParseFailure(t *testing.T) {
	r := newTestRenderer(t)
	_, err := r.Render(context.Background(), Request{Notation: "no tree here", Theme: ThemePlain})

	var re *RenderError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, StageParse, re.Stage)
	assert.ErrorIs(t, err, sgf.ErrNoGameTree)
}

func TestRenderToleratesMalformedInput(t *testing.T) {
	r := newTestRenderer(t)
	out, err := r.Render(context.Background(), Request{
		Notation:  "(;SZ[99];B[zz];W[a];B[tt];W[dd])",
		Theme:     ThemePlain,
		MoveLimit: sgf.NoLimit,
	})
	require.NoError(t, err)
	assert.Equal(t, sgf.DefaultSize, out.Record.Size)
	assert.Equal(t, 2, out.Record.Dropped)
	assert.Equal(t, 1, out.Result.Skipped)
	assert.Equal(t, 1, out.Result.Board.Len())
}

func TestRenderAssetFailure(t *testing.T) {
	r := New(Options{Canvas: 100, FontPath: filepath.Join(t.TempDir(), "missing.ttf")}, logging.NewNopLogger())
	_, err := r.Render(context.Background(), Request{Notation: "(;B[aa])", Theme: ThemePlain})

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageAssets, stage)
	assert.ErrorIs(t, err, ErrAssets)
}

func TestRenderCancelledContext(t *testing.T) {
	r := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, Request{Notation: "(;B[aa])", Theme: ThemePlain})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderToFile(t *testing.T) {
	r := newTestRenderer(t)
	dest := filepath.Join(t.TempDir(), "out", "board.png")
	req := Request{Notation: sampleGame, Theme: ThemeLight, MoveLimit: sgf.NoLimit}

	out, err := r.RenderToFile(context.Background(), req, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, out.PNG, data)

	// Second render overwrites.
	req.Theme = ThemePlain
	out, err = r.RenderToFile(context.Background(), req, dest)
	require.NoError(t, err)
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, out.PNG, data)
}

func TestRenderToFileWriteFailure(t *testing.T) {
	r := newTestRenderer(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := r.RenderToFile(context.Background(), Request{Notation: "(;B[aa])", Theme: ThemePlain}, filepath.Join(blocker, "board.png"))

	stage, ok := StageOf(err)
	require.True(t, ok)
	assert.Equal(t, StageWrite, stage)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nothing but the blocking file")
}

func TestRenderRecordsMetrics(t *testing.T) {
	r := newTestRenderer(t)
	rec := &fakeRecorder{}
	r.SetRecorder(rec)

	_, err := r.Render(context.Background(), Request{Notation: captureGame, Theme: ThemePaper, Kifu: true, MoveLimit: sgf.NoLimit})
	require.NoError(t, err)
	_, err = r.Render(context.Background(), Request{Notation: "", Theme: ThemePlain})
	require.Error(t, err)

	assert.Equal(t, []string{"paper/kifu/success", "plain/final/error"}, rec.renders)
	assert.Equal(t, 1, rec.boards)
	assert.Equal(t, 2, rec.stages["parse"])
	assert.Equal(t, 1, rec.stages["surface"])
	assert.Equal(t, 1, rec.stages["encode"])
}

func TestRenderToFileRecordsWriteStage(t *testing.T) {
	r := newTestRenderer(t)
	rec := &fakeRecorder{}
	r.SetRecorder(rec)
	dir := t.TempDir()

	_, err := r.RenderToFile(context.Background(), Request{Notation: captureGame, Theme: ThemePlain, MoveLimit: sgf.NoLimit}, filepath.Join(dir, "board.png"))
	require.NoError(t, err)

	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	_, err = r.RenderToFile(context.Background(), Request{Notation: captureGame, Theme: ThemePlain, MoveLimit: sgf.NoLimit}, filepath.Join(blocker, "board.png"))
	require.Error(t, err)

	assert.Equal(t, []string{"plain/final/success", "plain/final/error"}, rec.renders)
	assert.Equal(t, 2, rec.stages["encode"])
	assert.Equal(t, 2, rec.stages["write"])
}

func TestRendererReplay(t *testing.T) {
	r := newTestRenderer(t)
	rec, res, err := r.Replay(context.Background(), Request{Notation: captureGame, MoveLimit: 4})
	require.NoError(t, err)
	assert.Len(t, rec.Moves, 4)
	assert.Empty(t, res.Captured)
}

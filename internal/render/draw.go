package render

import (
	"image"
	"math"
	"strconv"

	"github.com/dmmcquay/sgf-renderer/internal/layout"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

const (
	gridWidth       = 1.0
	whiteStoneEdge  = 1.0
	starRadiusRatio = 5.0 / layout.DefaultCanvas
)

// Board is everything needed to draw one diagram.
type Board struct {
	Layout layout.Layout
	Stones []sgf.Move
	Theme  Theme
	Kifu   bool
}

// Draw paints the board onto s: background, grid, star points, stones and,
// for kifu diagrams, move numbers. Stones are drawn in sequence order so a
// later placement covers an earlier one on the same point.
func Draw(s Surface, b Board) error {
	if err := s.DrawBackground(b.Theme); err != nil {
		return err
	}

	l := b.Layout
	size := l.Size
	for x := 0; x < size.Width; x++ {
		x0, y0 := l.Point(x, 0)
		x1, y1 := l.Point(x, size.Height-1)
		s.DrawLine(Pt{x0, y0}, Pt{x1, y1}, Black, gridWidth)
	}
	for y := 0; y < size.Height; y++ {
		x0, y0 := l.Point(0, y)
		x1, y1 := l.Point(size.Width-1, y)
		s.DrawLine(Pt{x0, y0}, Pt{x1, y1}, Black, gridWidth)
	}

	starRadius := starRadiusRatio * float64(l.Canvas)
	for _, p := range layout.StarPoints(size) {
		cx, cy := l.Point(p.X, p.Y)
		s.DrawFilledCircle(Pt{cx, cy}, starRadius, Black)
	}

	radius := l.StoneRadius()
	for _, m := range b.Stones {
		cx, cy := l.Point(m.X, m.Y)
		center := Pt{cx, cy}

		if b.Theme.UsesImages() {
			if err := s.DrawImage(stoneAsset(m.Color), stoneRect(center, radius)); err != nil {
				return err
			}
		} else if m.Color == sgf.Black {
			s.DrawFilledCircle(center, radius, Black)
		} else {
			s.DrawFilledCircle(center, radius, White)
			s.DrawStrokedCircle(center, radius, Black, whiteStoneEdge)
		}

		if b.Kifu {
			fill, outline := White, Black
			if m.Color == sgf.White {
				fill, outline = Black, White
			}
			s.DrawLabel(strconv.Itoa(m.Number()), center, l.LabelSize(), fill, outline)
		}
	}
	return nil
}

func stoneAsset(c sgf.Color) Asset {
	if c == sgf.White {
		return AssetWhiteStone
	}
	return AssetBlackStone
}

func stoneRect(center Pt, radius float64) image.Rectangle {
	return image.Rect(
		int(math.Round(center.X-radius)), int(math.Round(center.Y-radius)),
		int(math.Round(center.X+radius)), int(math.Round(center.Y+radius)),
	)
}

// Package layout maps board intersections to canvas coordinates.
package layout

import (
	"github.com/dmmcquay/sgf-renderer/internal/board"
	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

// DefaultCanvas is the side length of the square output image in pixels.
const DefaultCanvas = 800

// padCells is the padding around the grid, in cells, split evenly between
// opposite edges.
const padCells = 3

// Layout positions a board grid centered on a square canvas.
type Layout struct {
	Canvas  int
	Size    sgf.BoardSize
	Pitch   float64
	MarginX float64
	MarginY float64
}

// Compute derives the cell pitch from the longer board side so cells stay
// square on rectangular boards, then centers the grid on both axes.
func Compute(size sgf.BoardSize, canvas int) Layout {
	if canvas <= 0 {
		canvas = DefaultCanvas
	}
	c := float64(canvas)
	pitch := c / float64(size.Max()-1+padCells)

	return Layout{
		Canvas:  canvas,
		Size:    size,
		Pitch:   pitch,
		MarginX: (c - pitch*float64(size.Width-1)) / 2,
		MarginY: (c - pitch*float64(size.Height-1)) / 2,
	}
}

// Point returns the canvas position of intersection (x, y).
func (l Layout) Point(x, y int) (float64, float64) {
	return l.MarginX + float64(x)*l.Pitch, l.MarginY + float64(y)*l.Pitch
}

// GridWidth is the horizontal extent of the grid lines.
func (l Layout) GridWidth() float64 {
	return l.Pitch * float64(l.Size.Width-1)
}

// GridHeight is the vertical extent of the grid lines.
func (l Layout) GridHeight() float64 {
	return l.Pitch * float64(l.Size.Height-1)
}

// StoneRadius is half a cell.
func (l Layout) StoneRadius() float64 {
	return l.Pitch * 0.5
}

// LabelSize is the font size for move numbers.
func (l Layout) LabelSize() float64 {
	return l.Pitch * 0.6
}

var starLines = []int{3, 9, 15}

// StarPoints returns the hoshi positions. Only the 19x19 board has them.
func StarPoints(size sgf.BoardSize) []board.Point {
	if size != sgf.DefaultSize {
		return nil
	}
	points := make([]board.Point, 0, len(starLines)*len(starLines))
	for _, y := range starLines {
		for _, x := range starLines {
			points = append(points, board.Point{X: x, Y: y})
		}
	}
	return points
}

// Package board replays a move sequence on an empty board and resolves
// captures.
package board

import (
	"strings"

	"github.com/dmmcquay/sgf-renderer/internal/sgf"
)

const empty = -1

// Point is a board intersection.
type Point struct {
	X, Y int
}

// Board holds at most one stone per intersection. Each cell stores the index
// of the move occupying it within the replayed sequence.
type Board struct {
	size  sgf.BoardSize
	cells []int
	moves []sgf.Move
}

// New returns an empty board of the given size.
func New(size sgf.BoardSize) *Board {
	cells := make([]int, size.Width*size.Height)
	for i := range cells {
		cells[i] = empty
	}
	return &Board{size: size, cells: cells}
}

// Size returns the board dimensions.
func (b *Board) Size() sgf.BoardSize {
	return b.size
}

func (b *Board) index(x, y int) int {
	return y*b.size.Width + x
}

// At returns the move occupying (x, y).
func (b *Board) At(x, y int) (sgf.Move, bool) {
	if !b.size.Contains(x, y) {
		return sgf.Move{}, false
	}
	slot := b.cells[b.index(x, y)]
	if slot == empty {
		return sgf.Move{}, false
	}
	return b.moves[slot], true
}

// Color returns the stone color at (x, y), or sgf.Empty.
func (b *Board) Color(x, y int) sgf.Color {
	m, ok := b.At(x, y)
	if !ok {
		return sgf.Empty
	}
	return m.Color
}

// Len returns the number of stones on the board.
func (b *Board) Len() int {
	n := 0
	for _, slot := range b.cells {
		if slot != empty {
			n++
		}
	}
	return n
}

// Stones returns the live stones in row-major order.
func (b *Board) Stones() []sgf.Move {
	stones := make([]sgf.Move, 0, b.Len())
	for _, slot := range b.cells {
		if slot != empty {
			stones = append(stones, b.moves[slot])
		}
	}
	return stones
}

// place puts m on the board, replacing whatever was there.
func (b *Board) place(m sgf.Move) {
	b.moves = append(b.moves, m)
	b.cells[b.index(m.X, m.Y)] = len(b.moves) - 1
}

func (b *Board) remove(p Point) sgf.Move {
	i := b.index(p.X, p.Y)
	m := b.moves[b.cells[i]]
	b.cells[i] = empty
	return m
}

// String draws the board as text, one row per line.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.size.Height; y++ {
		for x := 0; x < b.size.Width; x++ {
			if x > 0 {
				sb.WriteByte(' ')
			}
			switch b.Color(x, y) {
			case sgf.Black:
				sb.WriteString("●")
			case sgf.White:
				sb.WriteString("○")
			default:
				sb.WriteString("·")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

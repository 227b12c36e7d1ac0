package board

import "github.com/dmmcquay/sgf-renderer/internal/sgf"

// Capture records a stone removed from the board and the index of the move
// whose placement removed it.
type Capture struct {
	Stone sgf.Move `json:"stone"`
	By    int      `json:"by"`
}

// Result is the outcome of replaying a move sequence.
type Result struct {
	Board *Board
	// Placed holds every in-bounds move in sequence order, captured or not.
	Placed   []sgf.Move
	Captured []Capture
	// Skipped counts moves discarded by the bounds check.
	Skipped int
}

// Replay plays moves in order on an empty board of the given size.
//
// Out-of-bounds moves are skipped. A placement overwrites any previous
// occupant. After each placement the opposing groups next to the new stone
// are examined and removed when they have no liberties left. The mover's own
// group is never checked, so a suicidal placement stays on the board.
func Replay(size sgf.BoardSize, moves []sgf.Move) *Result {
	b := New(size)
	res := &Result{
		Board:    b,
		Placed:   make([]sgf.Move, 0, len(moves)),
		Captured: []Capture{},
	}

	for _, m := range moves {
		if !size.Contains(m.X, m.Y) {
			res.Skipped++
			continue
		}

		b.place(m)
		res.Placed = append(res.Placed, m)

		opponent := m.Color.Opponent()
		visited := make([]bool, len(b.cells))
		for _, d := range neighbors {
			n := Point{m.X + d.X, m.Y + d.Y}
			if !size.Contains(n.X, n.Y) || visited[b.index(n.X, n.Y)] {
				continue
			}
			if b.Color(n.X, n.Y) != opponent {
				continue
			}

			group := b.flood(n, visited)
			if group.Liberties > 0 {
				continue
			}
			for _, p := range group.Stones {
				res.Captured = append(res.Captured, Capture{Stone: b.remove(p), By: m.Index})
			}
		}
	}

	return res
}

// Visible returns the stones to draw. Kifu diagrams show every placement,
// including captured stones; otherwise only the live stones are returned.
func (r *Result) Visible(kifu bool) []sgf.Move {
	if kifu {
		return r.Placed
	}
	return r.Board.Stones()
}

// CapturedBy counts the stones captured by the given color.
func (r *Result) CapturedBy(color sgf.Color) int {
	n := 0
	for _, c := range r.Captured {
		if c.Stone.Color == color.Opponent() {
			n++
		}
	}
	return n
}

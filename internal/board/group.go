package board

import "github.com/dmmcquay/sgf-renderer/internal/sgf"

// Group is a connected set of same-colored stones. It is computed on demand
// and never stored on the board.
type Group struct {
	Color     sgf.Color
	Stones    []Point
	Liberties int
}

// neighbors lists orthogonal offsets in scan order: west, east, north, south.
var neighbors = [4]Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// GroupAt returns the group containing the stone at (x, y).
func (b *Board) GroupAt(x, y int) (Group, bool) {
	color := b.Color(x, y)
	if color == sgf.Empty {
		return Group{}, false
	}
	return b.flood(Point{x, y}, make([]bool, len(b.cells))), true
}

// flood collects the group at start with an explicit work stack. visited is
// shared across calls within one placement so a group touching the new stone
// on two sides is only examined once; it also marks counted liberties.
func (b *Board) flood(start Point, visited []bool) Group {
	color := b.Color(start.X, start.Y)
	group := Group{Color: color}

	stack := []Point{start}
	visited[b.index(start.X, start.Y)] = true
	libertySeen := make(map[int]struct{})

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group.Stones = append(group.Stones, p)

		for _, d := range neighbors {
			n := Point{p.X + d.X, p.Y + d.Y}
			if !b.size.Contains(n.X, n.Y) {
				continue
			}
			i := b.index(n.X, n.Y)
			switch b.Color(n.X, n.Y) {
			case sgf.Empty:
				libertySeen[i] = struct{}{}
			case color:
				if !visited[i] {
					visited[i] = true
					stack = append(stack, n)
				}
			}
		}
	}

	group.Liberties = len(libertySeen)
	return group
}

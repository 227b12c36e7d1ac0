// Package sgf extracts the board size and the main-line move sequence from
// SGF game records. It is intentionally not a full SGF parser: game info,
// comments and setup properties are skipped as opaque text.
package sgf

import (
	"errors"
	"fmt"
)

// Board dimension limits accepted in a size declaration.
const (
	MinSize = 2
	MaxSize = 25
)

// NoLimit requests the full main line from Parse.
const NoLimit = -1

var (
	// ErrMalformedSize is wrapped by size errors. It is always recoverable:
	// the default 19x19 size is used instead.
	ErrMalformedSize = errors.New("malformed board size")

	// ErrNoGameTree is returned when the notation contains no game tree.
	ErrNoGameTree = errors.New("invalid SGF: no opening parenthesis")
)

// Color of a stone
type Color int

const (
	Empty Color = iota
	Black
	White
)

// Opponent returns the opposite stone color. Empty has no opponent.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (c Color) String() string {
	switch c {
	case Black:
		return "B"
	case White:
		return "W"
	default:
		return "."
	}
}

// BoardSize is the board width and height in intersections.
type BoardSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultSize is used when the record omits or mangles its size declaration.
var DefaultSize = BoardSize{Width: 19, Height: 19}

// Valid reports whether both dimensions are within [MinSize, MaxSize].
func (s BoardSize) Valid() bool {
	return inRange(s.Width) && inRange(s.Height)
}

// Max returns the longer dimension.
func (s BoardSize) Max() int {
	if s.Width > s.Height {
		return s.Width
	}
	return s.Height
}

// Contains reports whether (x, y) is on the board.
func (s BoardSize) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

func (s BoardSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

func inRange(n int) bool {
	return n >= MinSize && n <= MaxSize
}

// Move is a single stone placement from the main line.
type Move struct {
	Color Color `json:"color"`
	X     int   `json:"x"` // column
	Y     int   `json:"y"` // row
	Index int   `json:"index"`
}

// Number is the 1-based move number shown in kifu diagrams.
func (m Move) Number() int {
	return m.Index + 1
}

func (m Move) String() string {
	return fmt.Sprintf("%s%d[%s]", m.Color, m.Number(), FormatCoord(m.X, m.Y))
}

// Record is the result of parsing a game record.
type Record struct {
	Size  BoardSize `json:"size"`
	Moves []Move    `json:"moves"`

	// Total is the number of main-line moves before truncation.
	Total int `json:"total"`
	// Dropped counts move tokens discarded for a malformed coordinate.
	Dropped int `json:"dropped"`
	// SizeErr explains why DefaultSize was used despite a declaration.
	SizeErr error `json:"-"`
}

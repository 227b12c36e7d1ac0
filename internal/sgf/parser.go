package sgf

import (
	"fmt"
	"strconv"
	"strings"
)

// mainLineDepth is the nesting level whose moves are replayed.
// The game tree itself opens depth 1; any branch inside it is a variation.
const mainLineDepth = 1

// Parse extracts the board size and the main-line moves from notation.
// Only the first game tree is read: text before its opening parenthesis and
// any later trees in a collection are ignored.
//
// Malformed coordinates are dropped and counted in Record.Dropped. A bad
// size declaration falls back to DefaultSize and is reported through
// Record.SizeErr. The only hard failure is notation that holds no game tree.
// A non-negative limit keeps the first limit moves.
func Parse(notation string, limit int) (*Record, error) {
	s := newScanner(notation)
	rec := &Record{
		Size:  DefaultSize,
		Moves: []Move{},
	}

	sizeSeen := false
	for {
		prop, ok := s.next()
		if !ok {
			break
		}

		if !prop.inTree() {
			continue
		}

		switch prop.id {
		case "SZ":
			if sizeSeen {
				continue
			}
			sizeSeen = true
			rec.Size, rec.SizeErr = sizeFromProperty(prop)

		case "B", "W":
			if prop.depth != mainLineDepth || len(prop.values) == 0 {
				continue
			}
			if !prop.closed {
				rec.Dropped++
				continue
			}
			x, y, ok := ParseCoord(prop.values[0])
			if !ok {
				rec.Dropped++
				continue
			}
			color := Black
			if prop.id == "W" {
				color = White
			}
			rec.Moves = append(rec.Moves, Move{
				Color: color,
				X:     x,
				Y:     y,
				Index: len(rec.Moves),
			})
		}
	}

	if !s.sawTree {
		return nil, ErrNoGameTree
	}

	rec.Total = len(rec.Moves)
	if limit >= 0 && limit < len(rec.Moves) {
		rec.Moves = rec.Moves[:limit]
	}
	return rec, nil
}

// ParseBoardSize returns the size declared by the first SZ property.
// The returned size is always usable: when the declaration is missing the
// default is returned with a nil error, and when it is malformed the default
// is returned together with an error wrapping ErrMalformedSize.
func ParseBoardSize(notation string) (BoardSize, error) {
	s := newScanner(notation)
	for {
		prop, ok := s.next()
		if !ok {
			return DefaultSize, nil
		}
		if prop.id == "SZ" && prop.inTree() {
			return sizeFromProperty(prop)
		}
	}
}

func sizeFromProperty(prop property) (BoardSize, error) {
	if len(prop.values) == 0 {
		return DefaultSize, fmt.Errorf("%w: SZ has no value", ErrMalformedSize)
	}
	if !prop.closed {
		return DefaultSize, fmt.Errorf("%w: unterminated value %q", ErrMalformedSize, prop.values[0])
	}
	return parseSizeValue(prop.values[0])
}

func parseSizeValue(value string) (BoardSize, error) {
	value = strings.TrimSpace(value)

	if strings.Contains(value, ":") {
		parts := strings.Split(value, ":")
		if len(parts) != 2 {
			return DefaultSize, fmt.Errorf("%w: %q needs exactly width:height", ErrMalformedSize, value)
		}
		width, err := parseDimension(parts[0])
		if err != nil {
			return DefaultSize, err
		}
		height, err := parseDimension(parts[1])
		if err != nil {
			return DefaultSize, err
		}
		return BoardSize{Width: width, Height: height}, nil
	}

	n, err := parseDimension(value)
	if err != nil {
		return DefaultSize, err
	}
	return BoardSize{Width: n, Height: n}, nil
}

func parseDimension(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedSize, text)
	}
	if !inRange(n) {
		return 0, fmt.Errorf("%w: %d outside [%d, %d]", ErrMalformedSize, n, MinSize, MaxSize)
	}
	return n, nil
}

package sgf

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestParseBoardSizeSquare(t *testing.T) {
	for n := -1; n <= 30; n++ {
		notation := fmt.Sprintf("(;GM[1]SZ[%d];B[aa])", n)
		size, err := ParseBoardSize(notation)

		if n >= MinSize && n <= MaxSize {
			if err != nil {
				t.Errorf("SZ[%d]: unexpected error %v", n, err)
			}
			if size != (BoardSize{Width: n, Height: n}) {
				t.Errorf("SZ[%d]: got %v", n, size)
			}
			continue
		}

		if !errors.Is(err, ErrMalformedSize) {
			t.Errorf("SZ[%d]: expected ErrMalformedSize, got %v", n, err)
		}
		if size != DefaultSize {
			t.Errorf("SZ[%d]: expected fallback to %v, got %v", n, DefaultSize, size)
		}
	}
}

func TestParseBoardSizeRectangular(t *testing.T) {
	for _, w := range []int{1, 2, 9, 13, 25, 26} {
		for _, h := range []int{0, 2, 7, 19, 25, 40} {
			size, err := ParseBoardSize(fmt.Sprintf("(;SZ[%d:%d])", w, h))
			valid := w >= MinSize && w <= MaxSize && h >= MinSize && h <= MaxSize

			if valid {
				if err != nil || size != (BoardSize{Width: w, Height: h}) {
					t.Errorf("SZ[%d:%d]: got %v, %v", w, h, size, err)
				}
			} else if size != DefaultSize || !errors.Is(err, ErrMalformedSize) {
				t.Errorf("SZ[%d:%d]: expected fallback, got %v, %v", w, h, size, err)
			}
		}
	}
}

func TestParseBoardSizeMalformed(t *testing.T) {
	tests := []struct {
		name     string
		notation string
		wantErr  bool
	}{
		{"missing", "(;GM[1];B[aa])", false},
		{"non-numeric", "(;SZ[big])", true},
		{"too many parts", "(;SZ[9:9:9])", true},
		{"empty height", "(;SZ[9:])", true},
		{"empty value", "(;SZ[])", true},
		{"unterminated", "(;SZ[13", true},
		{"whitespace tolerated", "(;SZ[ 13 ])", false},
		{"inside comment ignored", "(;C[try SZ[9\\] later])", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := ParseBoardSize(tt.notation)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && size != DefaultSize {
				t.Errorf("expected default size, got %v", size)
			}
		})
	}
}

func TestParseMoves(t *testing.T) {
	tests := []struct {
		name        string
		notation    string
		wantMoves   []Move
		wantDropped int
	}{
		{
			name:     "axes swapped",
			notation: "(;SZ[19];B[bc];W[pd])",
			wantMoves: []Move{
				{Color: Black, X: 2, Y: 1, Index: 0},
				{Color: White, X: 3, Y: 15, Index: 1},
			},
		},
		{
			name:        "empty pass dropped",
			notation:    "(;B[dd];W[];W[ee])",
			wantMoves:   []Move{{Color: Black, X: 3, Y: 3, Index: 0}, {Color: White, X: 4, Y: 4, Index: 1}},
			wantDropped: 1,
		},
		{
			// tt is kept here and discarded by the bounds check on boards up to 19x19.
			name:      "tt parsed as a coordinate",
			notation:  "(;B[tt])",
			wantMoves: []Move{{Color: Black, X: 19, Y: 19, Index: 0}},
		},
		{
			name:        "bad length and alphabet dropped",
			notation:    "(;B[a];W[abc];B[A1];W[zz];B[cc])",
			wantMoves:   []Move{{Color: Black, X: 2, Y: 2, Index: 0}},
			wantDropped: 4,
		},
		{
			name:      "multi letter identifiers are not moves",
			notation:  "(;PB[Honinbo]WR[9d]AB[aa][bb]AW[cc];B[dd])",
			wantMoves: []Move{{Color: Black, X: 3, Y: 3, Index: 0}},
		},
		{
			name:      "property text never scanned",
			notation:  "(;C[then B[aa\\] and W[bb\\] ok];W[dd])",
			wantMoves: []Move{{Color: White, X: 3, Y: 3, Index: 0}},
		},
		{
			name:      "whitespace between identifier and value",
			notation:  "(;B [dd]\n;W\t[ee])",
			wantMoves: []Move{{Color: Black, X: 3, Y: 3, Index: 0}, {Color: White, X: 4, Y: 4, Index: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse(tt.notation, NoLimit)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !reflect.DeepEqual(rec.Moves, tt.wantMoves) {
				t.Errorf("Got moves %v, want %v", rec.Moves, tt.wantMoves)
			}
			if rec.Dropped != tt.wantDropped {
				t.Errorf("Got %d dropped, want %d", rec.Dropped, tt.wantDropped)
			}
		})
	}
}

func TestParseIgnoresVariations(t *testing.T) {
	notation := "(;SZ[19];B[dd];W[pp](;B[pd];W[dp])(;B[qq];W[od]))"
	rec, err := Parse(notation, NoLimit)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rec.Moves) != 2 {
		t.Fatalf("Got %d moves, want 2 (variations should be ignored)", len(rec.Moves))
	}
	for _, m := range rec.Moves {
		if m.Index > 1 {
			t.Errorf("variation move leaked into main line: %v", m)
		}
	}

	nested := "(;B[aa](;W[bb](;B[cc]));W[dd])"
	rec, err = Parse(nested, NoLimit)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []Move{{Color: Black, X: 0, Y: 0, Index: 0}, {Color: White, X: 3, Y: 3, Index: 1}}
	if !reflect.DeepEqual(rec.Moves, want) {
		t.Errorf("Got %v, want %v", rec.Moves, want)
	}
}

func TestParseReadsFirstGameTreeOnly(t *testing.T) {
	tests := []struct {
		name      string
		notation  string
		wantSize  BoardSize
		wantMoves []Move
	}{
		{
			name:     "collection",
			notation: "(;SZ[9];B[aa];W[bb])(;SZ[13];B[cc];W[dd])",
			wantSize: BoardSize{Width: 9, Height: 9},
			wantMoves: []Move{
				{Color: Black, X: 0, Y: 0, Index: 0},
				{Color: White, X: 1, Y: 1, Index: 1},
			},
		},
		{
			name:      "moves before the tree",
			notation:  "B[ee](;SZ[9];B[aa])",
			wantSize:  BoardSize{Width: 9, Height: 9},
			wantMoves: []Move{{Color: Black, X: 0, Y: 0, Index: 0}},
		},
		{
			name:      "size before the tree",
			notation:  "SZ[5](;B[aa])",
			wantSize:  DefaultSize,
			wantMoves: []Move{{Color: Black, X: 0, Y: 0, Index: 0}},
		},
		{
			name:      "trailing text after the tree",
			notation:  "(;SZ[9];B[aa]) W[bb]",
			wantSize:  BoardSize{Width: 9, Height: 9},
			wantMoves: []Move{{Color: Black, X: 0, Y: 0, Index: 0}},
		},
		{
			name:      "stray close before the tree",
			notation:  ")(;B[aa];W[bb])",
			wantSize:  DefaultSize,
			wantMoves: []Move{{Color: Black, X: 0, Y: 0, Index: 0}, {Color: White, X: 1, Y: 1, Index: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Parse(tt.notation, NoLimit)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if rec.Size != tt.wantSize {
				t.Errorf("Size = %v, want %v", rec.Size, tt.wantSize)
			}
			if !reflect.DeepEqual(rec.Moves, tt.wantMoves) {
				t.Errorf("Moves = %v, want %v", rec.Moves, tt.wantMoves)
			}
			if rec.Total != len(tt.wantMoves) {
				t.Errorf("Total = %d, want %d", rec.Total, len(tt.wantMoves))
			}

			size, err := ParseBoardSize(tt.notation)
			if err != nil || size != tt.wantSize {
				t.Errorf("ParseBoardSize = %v, %v; want %v", size, err, tt.wantSize)
			}
		})
	}
}

func TestParseLimit(t *testing.T) {
	full := "(;SZ[9];B[aa];W[bb];B[cc];W[dd];B[ee])"
	truncated := "(;SZ[9];B[aa];W[bb])"

	limited, err := Parse(full, 2)
	if err != nil {
		t.Fatal(err)
	}
	short, err := Parse(truncated, NoLimit)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(limited.Moves, short.Moves) {
		t.Errorf("limit 2 gave %v, want %v", limited.Moves, short.Moves)
	}
	if limited.Total != 5 {
		t.Errorf("Total = %d, want 5", limited.Total)
	}

	zero, err := Parse(full, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(zero.Moves) != 0 {
		t.Errorf("limit 0 should give no moves, got %d", len(zero.Moves))
	}

	over, err := Parse(full, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(over.Moves) != 5 {
		t.Errorf("limit beyond length should keep all moves, got %d", len(over.Moves))
	}
}

func TestParseSizeFallbackIsRecoverable(t *testing.T) {
	rec, err := Parse("(;SZ[99];B[aa])", NoLimit)
	if err != nil {
		t.Fatalf("malformed size must not fail the parse: %v", err)
	}
	if rec.Size != DefaultSize {
		t.Errorf("Size = %v, want %v", rec.Size, DefaultSize)
	}
	if !errors.Is(rec.SizeErr, ErrMalformedSize) {
		t.Errorf("SizeErr = %v, want ErrMalformedSize", rec.SizeErr)
	}
	if len(rec.Moves) != 1 {
		t.Errorf("Got %d moves, want 1", len(rec.Moves))
	}
}

func TestParseNoGameTree(t *testing.T) {
	for _, notation := range []string{"", "just text", ";B[aa];W[bb]"} {
		if _, err := Parse(notation, NoLimit); !errors.Is(err, ErrNoGameTree) {
			t.Errorf("Parse(%q) error = %v, want ErrNoGameTree", notation, err)
		}
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"(", ")", "((((", "))))", "(;B[", "(;B[\\", "(;SZ[", "(;W[aa]B[bb]",
		"(;B[aa]\x00\xff;W[bb])", "(;B[ab](;W[ba]))))))",
	}
	for _, in := range inputs {
		if _, err := Parse(in, NoLimit); err != nil && !errors.Is(err, ErrNoGameTree) {
			t.Errorf("Parse(%q) unexpected error %v", in, err)
		}
	}
}

func TestCoordRoundTrip(t *testing.T) {
	for x := 0; x < MaxSize; x++ {
		for y := 0; y < MaxSize; y++ {
			gx, gy, ok := ParseCoord(FormatCoord(x, y))
			if !ok || gx != x || gy != y {
				t.Fatalf("round trip (%d,%d) gave (%d,%d,%v)", x, y, gx, gy, ok)
			}
		}
	}
	if got := FormatCoord(-1, 0); got != "??" {
		t.Errorf("FormatCoord out of range = %q", got)
	}
}

func TestMoveNumber(t *testing.T) {
	m := Move{Color: White, X: 3, Y: 15, Index: 9}
	if m.Number() != 10 {
		t.Errorf("Number() = %d, want 10", m.Number())
	}
	if m.String() != "W10[pd]" {
		t.Errorf("String() = %q", m.String())
	}
}

package sgf

const coordAlphabet = "abcdefghijklmnopqrstuvwxy"

// ParseCoord converts a two letter SGF point into board indices.
// The first letter selects the row and the second the column, so "bc"
// yields x=2, y=1. Anything other than exactly two letters from 'a' to 'y'
// is rejected, which includes the empty pass value. The FF[4] pass "tt"
// parses as (19, 19) and is discarded later by the board bounds check.
func ParseCoord(s string) (x, y int, ok bool) {
	if len(s) != 2 {
		return 0, 0, false
	}
	row, ok := letterIndex(s[0])
	if !ok {
		return 0, 0, false
	}
	col, ok := letterIndex(s[1])
	if !ok {
		return 0, 0, false
	}
	return col, row, true
}

// FormatCoord is the inverse of ParseCoord.
func FormatCoord(x, y int) string {
	if x < 0 || y < 0 || x >= len(coordAlphabet) || y >= len(coordAlphabet) {
		return "??"
	}
	return string([]byte{coordAlphabet[y], coordAlphabet[x]})
}

func letterIndex(c byte) (int, bool) {
	if c < 'a' || c >= 'a'+byte(len(coordAlphabet)) {
		return 0, false
	}
	return int(c - 'a'), true
}

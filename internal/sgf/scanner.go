package sgf

// property is one identifier with its bracketed values, tagged with the
// variation depth it was read at.
type property struct {
	id     string
	values []string
	depth  int
	// closed is false when the last value ran to the end of input.
	closed bool
}

// inTree reports whether the property was read inside the game tree rather
// than in text preceding it.
func (p property) inTree() bool {
	return p.depth > 0
}

// scanner walks notation one character at a time. It only tracks how deeply
// nested the cursor is; the content of enclosing branches is never kept.
type scanner struct {
	content string
	index   int
	depth   int
	sawTree bool
	// done is set once the first game tree closes. Later trees of a
	// collection are never read.
	done bool
}

func newScanner(content string) *scanner {
	return &scanner{content: content}
}

// next returns the next property in the stream, or false at end of input
// or once the first game tree has closed.
func (s *scanner) next() (property, bool) {
	for !s.done && s.index < len(s.content) {
		c := s.content[s.index]
		switch {
		case c == '(':
			s.depth++
			s.sawTree = true
			s.index++
		case c == ')':
			if s.depth > 0 {
				s.depth--
				s.done = s.depth == 0
			}
			s.index++
		case c == '[':
			// Value without an identifier, skip it as opaque text.
			s.readValue()
		case isUpper(c):
			return s.readProperty(), true
		default:
			s.index++
		}
	}
	return property{}, false
}

func (s *scanner) readProperty() property {
	start := s.index
	for s.index < len(s.content) && isUpper(s.content[s.index]) {
		s.index++
	}
	prop := property{
		id:     s.content[start:s.index],
		depth:  s.depth,
		closed: true,
	}

	for {
		s.skipWhitespace()
		if s.index >= len(s.content) || s.content[s.index] != '[' {
			break
		}
		value, closed := s.readValue()
		prop.values = append(prop.values, value)
		if !closed {
			prop.closed = false
			break
		}
	}
	return prop
}

// readValue consumes a bracketed value starting at '[' and returns its text.
// An escaped "\]" does not terminate the value.
func (s *scanner) readValue() (string, bool) {
	s.index++ // '['
	var buf []byte
	for s.index < len(s.content) {
		c := s.content[s.index]
		switch c {
		case '\\':
			s.index++
			if s.index < len(s.content) {
				buf = append(buf, s.content[s.index])
				s.index++
			}
		case ']':
			s.index++
			return string(buf), true
		default:
			buf = append(buf, c)
			s.index++
		}
	}
	return string(buf), false
}

func (s *scanner) skipWhitespace() {
	for s.index < len(s.content) {
		switch s.content[s.index] {
		case ' ', '\t', '\n', '\r':
			s.index++
		default:
			return
		}
	}
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

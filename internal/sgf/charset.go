package sgf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeNotation converts a raw record to UTF-8 using the charset named by
// its CA property. Records without CA, or naming an unknown charset, are
// read as UTF-8 with invalid bytes replaced.
func DecodeNotation(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	enc := lookupCharset(declaredCharset(raw))
	if enc == unicode.UTF8 && utf8.Valid(raw) {
		return string(raw), nil
	}

	reader := transform.NewReader(bytes.NewReader(raw), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode notation: %w", err)
	}
	return string(decoded), nil
}

// declaredCharset finds the CA value by a plain byte search. The property
// name and the charset label are ASCII in every encoding SGF files use.
func declaredCharset(raw []byte) string {
	idx := bytes.Index(raw, []byte("CA["))
	for idx > 0 && isUpper(raw[idx-1]) {
		next := bytes.Index(raw[idx+1:], []byte("CA["))
		if next < 0 {
			return ""
		}
		idx += next + 1
	}
	if idx < 0 {
		return ""
	}
	rest := raw[idx+3:]
	end := bytes.IndexByte(rest, ']')
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(string(rest[:end]))
}

func lookupCharset(name string) encoding.Encoding {
	if name == "" {
		return unicode.UTF8
	}
	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return unicode.UTF8
	}
	return enc
}

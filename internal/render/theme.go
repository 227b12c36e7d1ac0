package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTheme is returned by ParseTheme for names outside the theme set.
var ErrUnknownTheme = errors.New("unknown theme")

// Theme selects how the board and stones are drawn.
type Theme int

const (
	// ThemeDark composites stone images over a dark wooden board.
	ThemeDark Theme = iota
	// ThemeLight composites stone images over a light wooden board.
	ThemeLight
	// ThemePaper draws vector stones on an off-white sheet.
	ThemePaper
	// ThemePlain draws vector stones on white.
	ThemePlain
)

// Themes lists every theme in declaration order.
var Themes = []Theme{ThemeDark, ThemeLight, ThemePaper, ThemePlain}

func (t Theme) String() string {
	switch t {
	case ThemeDark:
		return "dark"
	case ThemeLight:
		return "light"
	case ThemePaper:
		return "paper"
	case ThemePlain:
		return "plain"
	default:
		return fmt.Sprintf("Theme(%d)", int(t))
	}
}

// UsesImages reports whether the theme draws raster board and stone assets.
func (t Theme) UsesImages() bool {
	return t == ThemeDark || t == ThemeLight
}

// ParseTheme maps a theme name to a Theme. Matching ignores case and
// surrounding space.
func ParseTheme(name string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dark":
		return ThemeDark, nil
	case "light":
		return ThemeLight, nil
	case "paper":
		return ThemePaper, nil
	case "plain":
		return ThemePlain, nil
	default:
		return 0, fmt.Errorf("%w %q (want dark, light, paper or plain)", ErrUnknownTheme, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Theme) MarshalText() ([]byte, error) {
	switch t {
	case ThemeDark, ThemeLight, ThemePaper, ThemePlain:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownTheme, int(t))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Theme) UnmarshalText(text []byte) error {
	parsed, err := ParseTheme(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

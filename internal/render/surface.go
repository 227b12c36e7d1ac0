package render

import (
	"image"
	"image/color"
)

// Pt is a canvas position in pixels.
type Pt struct {
	X, Y float64
}

// Asset identifies a raster image supplied by the asset store.
type Asset int

const (
	AssetBlackStone Asset = iota
	AssetWhiteStone
)

// Palette used by the vector themes and the grid.
var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}
)

// Surface is the drawing capability the board renderer needs. Drawing calls
// do not fail; errors surface from DrawBackground, when a theme asset is
// missing, and from encoding.
type Surface interface {
	DrawBackground(theme Theme) error
	DrawLine(from, to Pt, c color.Color, width float64)
	DrawFilledCircle(center Pt, radius float64, c color.Color)
	DrawStrokedCircle(center Pt, radius float64, c color.Color, width float64)
	DrawImage(asset Asset, rect image.Rectangle) error
	DrawLabel(text string, center Pt, size float64, fill, outline color.Color)
	Encode() ([]byte, error)
	EncodeAndSave(path string) error
}

package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// MaxCanvas bounds the side of a RasterSurface.
const MaxCanvas = 8192

var paperColor = color.RGBA{0xf7, 0xf3, 0xe8, 0xff}

// outlineRadius is half the stroke width of label outlines, in pixels.
const outlineRadius = 1.5

// outlineOffsets are the glyph offsets used to fake a stroked outline.
var outlineOffsets = func() []fixed.Point26_6 {
	pts := make([]fixed.Point26_6, 0, 8)
	for i := 0; i < 8; i++ {
		a := float64(i) * math.Pi / 4
		pts = append(pts, fixed.Point26_6{
			X: fixed.Int26_6(math.Round(outlineRadius * 64 * math.Cos(a))),
			Y: fixed.Int26_6(math.Round(outlineRadius * 64 * math.Sin(a))),
		})
	}
	return pts
}()

// RasterSurface draws onto an in-memory RGBA image. A surface belongs to a
// single render and is not safe for concurrent use.
type RasterSurface struct {
	img    *image.RGBA
	assets *Assets
	faces  map[int]font.Face
}

var _ Surface = (*RasterSurface)(nil)

// NewRasterSurface allocates a square canvas.
func NewRasterSurface(canvas int, assets *Assets) (*RasterSurface, error) {
	if canvas <= 0 || canvas > MaxCanvas {
		return nil, fmt.Errorf("canvas size %d outside (0, %d]", canvas, MaxCanvas)
	}
	if assets == nil {
		return nil, fmt.Errorf("%w: surface has no assets", ErrAssets)
	}
	return &RasterSurface{
		img:    image.NewRGBA(image.Rect(0, 0, canvas, canvas)),
		assets: assets,
		faces:  make(map[int]font.Face),
	}, nil
}

// Image exposes the canvas.
func (s *RasterSurface) Image() *image.RGBA {
	return s.img
}

// Close releases the font faces created for labels.
func (s *RasterSurface) Close() error {
	var firstErr error
	for size, face := range s.faces {
		if err := face.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.faces, size)
	}
	return firstErr
}

func (s *RasterSurface) DrawBackground(theme Theme) error {
	bounds := s.img.Bounds()
	switch theme {
	case ThemeDark, ThemeLight:
		bg, ok := s.assets.Backgrounds[theme]
		if !ok || bg == nil {
			return fmt.Errorf("%w: no background for %s theme", ErrAssets, theme)
		}
		xdraw.CatmullRom.Scale(s.img, bounds, bg, bg.Bounds(), xdraw.Src, nil)
	case ThemePaper:
		xdraw.Draw(s.img, bounds, image.NewUniform(paperColor), image.Point{}, xdraw.Src)
	case ThemePlain:
		xdraw.Draw(s.img, bounds, image.NewUniform(White), image.Point{}, xdraw.Src)
	default:
		return fmt.Errorf("%w %d", ErrUnknownTheme, int(theme))
	}
	return nil
}

// DrawLine draws an anti-aliased segment with round caps.
func (s *RasterSurface) DrawLine(from, to Pt, c color.Color, width float64) {
	hw := math.Max(width, 1) / 2
	col := nrgba(c)

	minX, minY, maxX, maxY := s.clip(
		math.Min(from.X, to.X)-hw-1, math.Min(from.Y, to.Y)-hw-1,
		math.Max(from.X, to.X)+hw+1, math.Max(from.Y, to.Y)+hw+1,
	)

	dx, dy := to.X-from.X, to.Y-from.Y
	length2 := dx*dx + dy*dy
	for py := minY; py < maxY; py++ {
		cy := float64(py) + 0.5
		for px := minX; px < maxX; px++ {
			cx := float64(px) + 0.5
			t := 0.0
			if length2 > 0 {
				t = clamp(((cx-from.X)*dx+(cy-from.Y)*dy)/length2, 0, 1)
			}
			d := math.Hypot(cx-(from.X+t*dx), cy-(from.Y+t*dy))
			s.blend(px, py, col, hw+0.5-d)
		}
	}
}

func (s *RasterSurface) DrawFilledCircle(center Pt, radius float64, c color.Color) {
	if radius <= 0 {
		return
	}
	col := nrgba(c)
	minX, minY, maxX, maxY := s.clip(center.X-radius-1, center.Y-radius-1, center.X+radius+1, center.Y+radius+1)
	for py := minY; py < maxY; py++ {
		for px := minX; px < maxX; px++ {
			d := math.Hypot(float64(px)+0.5-center.X, float64(py)+0.5-center.Y)
			s.blend(px, py, col, radius+0.5-d)
		}
	}
}

func (s *RasterSurface) DrawStrokedCircle(center Pt, radius float64, c color.Color, width float64) {
	if radius <= 0 {
		return
	}
	hw := math.Max(width, 1) / 2
	col := nrgba(c)
	outer := radius + hw + 1
	minX, minY, maxX, maxY := s.clip(center.X-outer, center.Y-outer, center.X+outer, center.Y+outer)
	for py := minY; py < maxY; py++ {
		for px := minX; px < maxX; px++ {
			d := math.Hypot(float64(px)+0.5-center.X, float64(py)+0.5-center.Y)
			s.blend(px, py, col, hw+0.5-math.Abs(d-radius))
		}
	}
}

// DrawImage scales a stone asset into rect, compositing over the canvas.
func (s *RasterSurface) DrawImage(asset Asset, rect image.Rectangle) error {
	src, err := s.assets.Stone(asset)
	if err != nil {
		return err
	}
	xdraw.CatmullRom.Scale(s.img, rect, src, src.Bounds(), xdraw.Over, nil)
	return nil
}

// DrawLabel centers text on center. A non-nil outline is drawn first as a
// ring of offset copies under the fill.
func (s *RasterSurface) DrawLabel(text string, center Pt, size float64, fill, outline color.Color) {
	if text == "" || size <= 0 {
		return
	}
	face := s.face(size)
	d := &font.Drawer{Dst: s.img, Face: face}

	width := d.MeasureString(text)
	m := face.Metrics()
	capHeight := m.CapHeight
	if capHeight <= 0 {
		capHeight = m.Ascent * 7 / 10
	}
	origin := fixed.Point26_6{
		X: fixed.Int26_6(math.Round(center.X*64)) - width/2,
		Y: fixed.Int26_6(math.Round(center.Y*64)) + capHeight/2,
	}

	if outline != nil {
		d.Src = image.NewUniform(outline)
		for _, off := range outlineOffsets {
			d.Dot = origin.Add(off)
			d.DrawString(text)
		}
	}
	d.Src = image.NewUniform(fill)
	d.Dot = origin
	d.DrawString(text)
}

// Encode returns the canvas as PNG bytes.
func (s *RasterSurface) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, s.img); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeAndSave encodes the canvas and replaces path with the result.
func (s *RasterSurface) EncodeAndSave(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

func (s *RasterSurface) face(size float64) font.Face {
	key := int(math.Round(size * 4))
	if f, ok := s.faces[key]; ok {
		return f
	}
	f := s.assets.Face(float64(key) / 4)
	s.faces[key] = f
	return f
}

// clip converts a float box into pixel bounds limited to the canvas.
func (s *RasterSurface) clip(x0, y0, x1, y1 float64) (int, int, int, int) {
	b := s.img.Bounds()
	minX := max(int(math.Floor(x0)), b.Min.X)
	minY := max(int(math.Floor(y0)), b.Min.Y)
	maxX := min(int(math.Ceil(x1)), b.Max.X)
	maxY := min(int(math.Ceil(y1)), b.Max.Y)
	return minX, minY, maxX, maxY
}

// blend composites c over the pixel at (x, y) with fractional coverage.
func (s *RasterSurface) blend(x, y int, c color.NRGBA, coverage float64) {
	if coverage <= 0 || !(image.Point{X: x, Y: y}).In(s.img.Bounds()) {
		return
	}
	a := float64(c.A) / 255 * math.Min(coverage, 1)
	if a <= 0 {
		return
	}
	off := s.img.PixOffset(x, y)
	pix := s.img.Pix
	ia := 1 - a
	pix[off] = uint8(float64(c.R)*a + float64(pix[off])*ia + 0.5)
	pix[off+1] = uint8(float64(c.G)*a + float64(pix[off+1])*ia + 0.5)
	pix[off+2] = uint8(float64(c.B)*a + float64(pix[off+2])*ia + 0.5)
	pix[off+3] = uint8(255*a + float64(pix[off+3])*ia + 0.5)
}

func nrgba(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

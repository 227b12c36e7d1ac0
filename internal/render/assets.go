package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // background photos are often JPEG
	_ "image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// File names looked up in the asset directory.
var assetFiles = struct {
	Backgrounds map[Theme]string
	Stones      map[Asset]string
}{
	Backgrounds: map[Theme]string{
		ThemeDark:  "dark_board.png",
		ThemeLight: "light_board.png",
	},
	Stones: map[Asset]string{
		AssetBlackStone: "black_stone.png",
		AssetWhiteStone: "white_stone.png",
	},
}

const generatedSize = 256

// Assets are the images and font shared by every render. They are never
// modified after loading.
type Assets struct {
	Backgrounds map[Theme]image.Image
	Stones      map[Asset]image.Image
	// Sources records where each asset came from, "generated" or a path.
	Sources map[string]string

	font *opentype.Font
}

// LoadAssets reads board and stone images from dir, generating any that are
// missing. An empty dir generates everything. Stone images are turned 180
// degrees so their highlight sits on the lower right like the bundled set.
// fontPath selects a TrueType or OpenType label font; empty uses Go Bold.
func LoadAssets(dir, fontPath string) (*Assets, error) {
	a := &Assets{
		Backgrounds: make(map[Theme]image.Image),
		Stones:      make(map[Asset]image.Image),
		Sources:     make(map[string]string),
	}

	for theme, name := range assetFiles.Backgrounds {
		img, src, err := loadOrGenerate(dir, name, func() image.Image { return generateBoard(theme) })
		if err != nil {
			return nil, err
		}
		a.Backgrounds[theme] = img
		a.Sources[name] = src
	}

	for asset, name := range assetFiles.Stones {
		img, src, err := loadOrGenerate(dir, name, func() image.Image { return generateStone(asset) })
		if err != nil {
			return nil, err
		}
		a.Stones[asset] = rotate180(img)
		a.Sources[name] = src
	}

	f, src, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	a.font = f
	a.Sources["font"] = src

	return a, nil
}

// Stone returns the image for a stone asset.
func (a *Assets) Stone(asset Asset) (image.Image, error) {
	img, ok := a.Stones[asset]
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: no image for asset %d", ErrAssets, int(asset))
	}
	return img, nil
}

// Face returns a new label face of the given pixel size. Faces are not safe
// for concurrent use, so each surface asks for its own.
func (a *Assets) Face(size float64) font.Face {
	if a.font == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(a.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

func loadOrGenerate(dir, name string, generate func() image.Image) (image.Image, string, error) {
	if dir == "" {
		return generate(), "generated", nil
	}
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return generate(), "generated", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrAssets, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("%w: decode %s: %v", ErrAssets, path, err)
	}
	return img, path, nil
}

func loadFont(path string) (*opentype.Font, string, error) {
	data := gobold.TTF
	src := "gobold"
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("%w: font: %v", ErrAssets, err)
		}
		data = raw
		src = path
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: parse font %s: %v", ErrAssets, src, err)
	}
	return f, src, nil
}

func rotate180(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(b.Max.X-1-x, b.Max.Y-1-y, src.At(x, y))
		}
	}
	return dst
}

// generateBoard paints a wood-like board with soft horizontal grain.
func generateBoard(theme Theme) image.Image {
	base := color.RGBA{0xdc, 0xb3, 0x5c, 0xff}
	grain := color.RGBA{0xc4, 0x95, 0x3e, 0xff}
	if theme == ThemeDark {
		base = color.RGBA{0x8a, 0x5a, 0x2b, 0xff}
		grain = color.RGBA{0x6b, 0x42, 0x1c, 0xff}
	}

	img := image.NewRGBA(image.Rect(0, 0, generatedSize, generatedSize))
	for y := 0; y < generatedSize; y++ {
		fy := float64(y)
		for x := 0; x < generatedSize; x++ {
			wave := math.Sin(fy*0.35+math.Sin(float64(x)*0.02)*3) * 0.5
			t := 0.25 + 0.25*wave + 0.1*math.Sin(fy*0.07)
			img.SetRGBA(x, y, lerp(base, grain, t))
		}
	}
	return img
}

// generateStone draws a shaded stone with a soft highlight on the upper left.
func generateStone(asset Asset) image.Image {
	edge := color.RGBA{0x10, 0x10, 0x10, 0xff}
	shine := color.RGBA{0x6a, 0x6a, 0x6a, 0xff}
	if asset == AssetWhiteStone {
		edge = color.RGBA{0xc8, 0xc8, 0xc0, 0xff}
		shine = color.RGBA{0xff, 0xff, 0xff, 0xff}
	}

	img := image.NewNRGBA(image.Rect(0, 0, generatedSize, generatedSize))
	r := float64(generatedSize) / 2
	hx, hy := r*0.65, r*0.6
	for y := 0; y < generatedSize; y++ {
		for x := 0; x < generatedSize; x++ {
			cx, cy := float64(x)+0.5, float64(y)+0.5
			d := math.Hypot(cx-r, cy-r)
			cover := clamp(r-d, 0, 1)
			if cover == 0 {
				continue
			}
			t := clamp(math.Hypot(cx-hx, cy-hy)/(r*1.4), 0, 1)
			c := lerp(shine, edge, t)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(255 * cover)})
		}
	}
	return img
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	t = clamp(t, 0, 1)
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// AssetStore loads Assets on first use and hands the same set to every
// caller afterwards.
type AssetStore struct {
	dir      string
	fontPath string

	once   sync.Once
	assets *Assets
	err    error
}

// NewAssetStore creates a store reading from dir and fontPath.
func NewAssetStore(dir, fontPath string) *AssetStore {
	return &AssetStore{dir: dir, fontPath: fontPath}
}

// Get returns the loaded assets. A load failure is remembered and returned
// to every caller.
func (s *AssetStore) Get() (*Assets, error) {
	s.once.Do(func() {
		s.assets, s.err = LoadAssets(s.dir, s.fontPath)
	})
	return s.assets, s.err
}

// Dir returns the configured asset directory, empty when every image is
// generated.
func (s *AssetStore) Dir() string {
	return s.dir
}

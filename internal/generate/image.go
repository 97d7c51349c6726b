package generate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/dilla-go/dilla/internal/schema"
)

const (
	// FakesDir is the directory, relative to the staging dir, holding generated images.
	FakesDir = "dilla-fakes"
	// DefaultResolution is used when neither field nor model policy names one.
	DefaultResolution = "640x480"

	maxImageSide = 4096
)

// Uploader copies a generated image somewhere else, such as a bucket.
type Uploader interface {
	Upload(ctx context.Context, localPath, key string) error
}

// Painter synthesizes placeholder PNGs: a random background with two
// random letters, each in a random colour and font.
type Painter struct {
	gen      *Generators
	dir      string
	fonts    []*opentype.Font
	uploader Uploader
}

// NewPainter prepares the font pool and the output directory under
// stagingDir. uploader may be nil.
func NewPainter(g *Generators, stagingDir string, uploader Uploader) (*Painter, error) {
	var fonts []*opentype.Font
	for _, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gomono.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, fmt.Errorf("parsing font: %w", err)
		}
		fonts = append(fonts, f)
	}

	dir := filepath.Join(stagingDir, FakesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &Painter{gen: g, dir: dir, fonts: fonts, uploader: uploader}, nil
}

// Paint writes one image of the given WxH resolution and returns its path
// relative to the staging dir.
func (p *Painter) Paint(ctx context.Context, resolution string) (string, error) {
	w, h, err := ParseResolution(resolution)
	if err != nil {
		return "", err
	}

	src := p.gen.src
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.randomColor()), image.Point{}, draw.Src)

	size := float64(min(w, h))
	dot := fixed.P(0, 0)
	for _, letter := range src.Letters(2) {
		face, err := opentype.NewFace(p.fonts[src.IntN(len(p.fonts))], &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return "", fmt.Errorf("creating font face: %w", err)
		}
		if dot.Y == 0 {
			dot.Y = face.Metrics().Ascent
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(p.randomColor()), Face: face, Dot: dot}
		d.DrawString(string(letter))
		dot = d.Dot
		face.Close()
	}

	name := p.gen.Slug(&schema.Field{Unique: true}, nil) + ".png"
	local := filepath.Join(p.dir, name)
	f, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing image file: %w", err)
	}

	rel := path.Join(FakesDir, name)
	if p.uploader != nil {
		if err := p.uploader.Upload(ctx, local, rel); err != nil {
			return "", fmt.Errorf("uploading image: %w", err)
		}
	}
	return rel, nil
}

func (p *Painter) randomColor() color.RGBA {
	s := p.gen.src
	return color.RGBA{R: uint8(s.IntN(256)), G: uint8(s.IntN(256)), B: uint8(s.IntN(256)), A: 255}
}

// ParseResolution parses "WxH".
func ParseResolution(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q: expected WxH", s)
	}
	if w > maxImageSide || h > maxImageSide {
		return 0, 0, fmt.Errorf("resolution %q exceeds %dx%d", s, maxImageSide, maxImageSide)
	}
	return w, h, nil
}

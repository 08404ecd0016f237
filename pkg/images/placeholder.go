package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderFill = color.RGBA{211, 211, 211, 255}

	regularOnce sync.Once
	regularFont *truetype.Font
)

func loadRegular() *truetype.Font {
	regularOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err == nil {
			regularFont = f
		}
	})
	return regularFont
}

// PlaceholderOptions sizes placeholder images
type PlaceholderOptions struct {
	Width    int
	Height   int
	FontSize float64
}

// PlaceholderGenerator draws labeled stand-ins for images that could not
// be extracted. It is safe for concurrent use.
type PlaceholderGenerator struct {
	opts PlaceholderOptions
}

// NewPlaceholderGenerator fills zero options with 200x200 and 14px text
func NewPlaceholderGenerator(opts PlaceholderOptions) *PlaceholderGenerator {
	if opts.Width <= 0 {
		opts.Width = 200
	}
	if opts.Height <= 0 {
		opts.Height = 200
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 14
	}
	return &PlaceholderGenerator{opts: opts}
}

// Generate returns a placeholder record. It never fails.
func (g *PlaceholderGenerator) Generate(name string, page int, reason string) Record {
	img := image.NewNRGBA(image.Rect(0, 0, g.opts.Width, g.opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderFill), image.Point{}, draw.Src)

	g.drawText(img, "Image: "+name, 10, 50)
	g.drawText(img, fmt.Sprintf("(%s)", reason), 10, 70)

	return Record{
		Pixels:     img.Pix,
		Width:      g.opts.Width,
		Height:     g.opts.Height,
		SourcePage: page,
		SourceName: name,
		Status:     StatusPlaceholder,
		Reason:     reason,
		Format:     FormatRGBA,
	}
}

// drawText draws s with its baseline at (x, y)
func (g *PlaceholderGenerator) drawText(dst draw.Image, s string, x, y int) {
	if f := loadRegular(); f != nil {
		c := freetype.NewContext()
		c.SetDPI(72)
		c.SetFont(f)
		c.SetFontSize(g.opts.FontSize)
		c.SetClip(dst.Bounds())
		c.SetDst(dst)
		c.SetSrc(image.Black)
		c.SetHinting(font.HintingFull)
		if _, err := c.DrawString(s, freetype.Pt(x, y)); err == nil {
			return
		}
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

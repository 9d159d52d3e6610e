package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand/v2"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const noiseLines = 8

// Render draws text onto a white PNG with noise strokes, per-glyph jitter
// and a light blur. The exact look is not part of any contract.
func Render(text string, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid captcha image size %dx%d", width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for i := 0; i < noiseLines; i++ {
		c := color.RGBA{
			R: uint8(150 + rand.IntN(51)),
			G: uint8(150 + rand.IntN(51)),
			B: uint8(150 + rand.IntN(51)),
			A: 255,
		}
		drawLine(img, rand.IntN(width), rand.IntN(height), rand.IntN(width), rand.IntN(height), c)
	}

	if n := len(text); n > 0 {
		glyphH := height * 3 / 5
		glyphW := glyphH * 7 / 13
		step := (width - 20) / n
		for i, ch := range text {
			x := 10 + i*step + rand.IntN(3)
			y := rand.IntN(max(1, height-glyphH))
			ink := color.RGBA{
				R: uint8(rand.IntN(81)),
				G: uint8(rand.IntN(81)),
				B: uint8(rand.IntN(81)),
				A: 255,
			}
			glyph := renderGlyph(ch, ink)
			dst := image.Rect(x, y, x+glyphW, y+glyphH)
			xdraw.ApproxBiLinear.Scale(img, dst, glyph, glyph.Bounds(), xdraw.Over, nil)
		}
	}

	blurred := boxBlur(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, blurred); err != nil {
		return nil, fmt.Errorf("failed to encode captcha image: %w", err)
	}
	return buf.Bytes(), nil
}

func renderGlyph(ch rune, ink color.Color) *image.RGBA {
	face := basicfont.Face7x13
	glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := &font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(ch))
	return glyph
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.SetRGBA(x0, y0, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		img.SetRGBA(x, y, c)
	}
}

// boxBlur is a 3x3 mean filter.
func boxBlur(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var r, g, bl, n uint32
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					p := image.Pt(x+kx, y+ky)
					if !p.In(b) {
						continue
					}
					c := src.RGBAAt(p.X, p.Y)
					r += uint32(c.R)
					g += uint32(c.G)
					bl += uint32(c.B)
					n++
				}
			}
			dst.SetRGBA(x, y, color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 255})
		}
	}
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package views

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	colorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorBlack = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	colorGrid  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	colorText  = color.RGBA{R: 51, G: 51, B: 51, A: 255}
)

// canvas is a white RGBA image with 7x13 bitmap text, used for the charts
// go-chart has no renderer for (annotated grids, box plots, placeholders).
type canvas struct {
	img  *image.RGBA
	face font.Face
}

func newCanvas(w, h int) *canvas {
	c := &canvas{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		face: basicfont.Face7x13,
	}
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)
	return c
}

func (c *canvas) fill(r image.Rectangle, col color.Color) {
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *canvas) outline(r image.Rectangle, col color.Color) {
	c.hline(r.Min.X, r.Max.X, r.Min.Y, col)
	c.hline(r.Min.X, r.Max.X, r.Max.Y-1, col)
	c.vline(r.Min.X, r.Min.Y, r.Max.Y, col)
	c.vline(r.Max.X-1, r.Min.Y, r.Max.Y, col)
}

func (c *canvas) hline(x0, x1, y int, col color.Color) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	c.fill(image.Rect(x0, y, x1+1, y+1), col)
}

func (c *canvas) vline(x, y0, y1 int, col color.Color) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	c.fill(image.Rect(x, y0, x+1, y1+1), col)
}

func (c *canvas) textWidth(s string) int {
	d := &font.Drawer{Face: c.face}
	return d.MeasureString(s).Ceil()
}

// text draws s with its baseline at y.
func (c *canvas) text(x, y int, s string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

// textCentered draws s centred on (cx, cy).
func (c *canvas) textCentered(cx, cy int, s string, col color.Color) {
	m := c.face.Metrics()
	h := (m.Ascent + m.Descent).Ceil()
	c.text(cx-c.textWidth(s)/2, cy+h/2-m.Descent.Ceil(), s, col)
}

// textRight draws s ending at x.
func (c *canvas) textRight(x, cy int, s string, col color.Color) {
	c.textCentered(x-c.textWidth(s)/2, cy, s, col)
}

func (c *canvas) title(s string) {
	c.textCentered(c.img.Bounds().Dx()/2, 20, s, colorBlack)
}

func (c *canvas) png() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// placeholder renders a titled image stating there is nothing to plot.
func placeholder(title string, opts Options) ([]byte, error) {
	c := newCanvas(opts.Width, opts.Height)
	c.title(title)
	c.outline(image.Rect(40, 40, opts.Width-40, opts.Height-40), colorGrid)
	c.textCentered(opts.Width/2, opts.Height/2, "no data", colorText)
	return c.png()
}

// palette maps t in [0, 1] onto a colour ramp.
type palette []color.RGBA

var (
	// yellow -> green -> blue, for magnitudes
	paletteYlGnBu = palette{
		{R: 255, G: 255, B: 217, A: 255},
		{R: 199, G: 233, B: 180, A: 255},
		{R: 65, G: 182, B: 196, A: 255},
		{R: 34, G: 94, B: 168, A: 255},
		{R: 8, G: 29, B: 88, A: 255},
	}
	// blue -> grey -> red, for signed values centred on zero
	paletteCoolWarm = palette{
		{R: 59, G: 76, B: 192, A: 255},
		{R: 221, G: 221, B: 221, A: 255},
		{R: 180, G: 4, B: 38, A: 255},
	}
)

func (p palette) at(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return p[0]
	}
	if t >= 1 {
		return p[len(p)-1]
	}
	pos := t * float64(len(p)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := p[i], p[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// contrast picks black or white text for legibility on bg.
func contrast(bg color.RGBA) color.RGBA {
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum < 140 {
		return colorWhite
	}
	return colorBlack
}

// niceStep returns a round tick spacing giving roughly n ticks over span.
func niceStep(span float64, n int) float64 {
	if span <= 0 || n <= 0 {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm < 1.5:
		return mag
	case norm < 3:
		return 2 * mag
	case norm < 7:
		return 5 * mag
	}
	return 10 * mag
}

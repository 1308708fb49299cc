package views

import (
	"fmt"
	"image"
	"math"
)

// grid is an annotated, colour-scaled matrix.
type grid struct {
	Title     string
	XName     string
	YName     string
	RowLabels []string
	ColLabels []string
	Values    [][]float64
	Format    string
	Palette   palette
	Min, Max  float64
}

// renderGrid draws g as a heatmap with a colour bar on the right.
func renderGrid(g grid, opts Options) ([]byte, error) {
	if len(g.RowLabels) == 0 || len(g.ColLabels) == 0 {
		return placeholder(g.Title, opts)
	}
	if len(g.Values) != len(g.RowLabels) {
		return nil, fmt.Errorf("grid has %d rows of values for %d labels", len(g.Values), len(g.RowLabels))
	}

	c := newCanvas(opts.Width, opts.Height)
	c.title(g.Title)

	left := 20 + maxWidth(c, g.RowLabels)
	if g.YName != "" {
		left += 16
	}
	top, bottom, right := 40, 50, 90
	area := image.Rect(left, top, opts.Width-right, opts.Height-bottom)
	if area.Dx() <= 0 || area.Dy() <= 0 {
		return nil, fmt.Errorf("canvas %dx%d too small", opts.Width, opts.Height)
	}

	cellW := float64(area.Dx()) / float64(len(g.ColLabels))
	cellH := float64(area.Dy()) / float64(len(g.RowLabels))
	span := g.Max - g.Min

	for i, row := range g.Values {
		if len(row) != len(g.ColLabels) {
			return nil, fmt.Errorf("grid row %q has %d values for %d columns", g.RowLabels[i], len(row), len(g.ColLabels))
		}
		y0 := area.Min.Y + int(math.Round(float64(i)*cellH))
		y1 := area.Min.Y + int(math.Round(float64(i+1)*cellH))
		for j, v := range row {
			x0 := area.Min.X + int(math.Round(float64(j)*cellW))
			x1 := area.Min.X + int(math.Round(float64(j+1)*cellW))

			t := 0.5
			if span > 0 {
				t = (v - g.Min) / span
			}
			bg := g.Palette.at(t)
			c.fill(image.Rect(x0, y0, x1, y1), bg)
			c.textCentered((x0+x1)/2, (y0+y1)/2, fmt.Sprintf(g.Format, v), contrast(bg))
		}
		c.textRight(area.Min.X-6, (y0+y1)/2, g.RowLabels[i], colorText)
	}
	for j, label := range g.ColLabels {
		cx := area.Min.X + int(math.Round((float64(j)+0.5)*cellW))
		c.textCentered(cx, area.Max.Y+12, label, colorText)
	}

	if g.XName != "" {
		c.textCentered((area.Min.X+area.Max.X)/2, area.Max.Y+32, g.XName, colorBlack)
	}
	if g.YName != "" {
		c.text(4, area.Min.Y-8, g.YName, colorBlack)
	}

	drawColorBar(c, image.Rect(area.Max.X+20, area.Min.Y, area.Max.X+36, area.Max.Y), g)
	return c.png()
}

func drawColorBar(c *canvas, r image.Rectangle, g grid) {
	h := r.Dy()
	if h < 2 {
		return
	}
	for y := 0; y < h; y++ {
		t := 1 - float64(y)/float64(h-1)
		c.hline(r.Min.X, r.Max.X, r.Min.Y+y, g.Palette.at(t))
	}
	c.outline(r, colorGrid)
	c.text(r.Max.X+4, r.Min.Y+10, fmt.Sprintf(g.Format, g.Max), colorText)
	c.text(r.Max.X+4, r.Max.Y, fmt.Sprintf(g.Format, g.Min), colorText)
}

func maxWidth(c *canvas, labels []string) int {
	w := 0
	for _, l := range labels {
		if lw := c.textWidth(l); lw > w {
			w = lw
		}
	}
	return w
}

package views

import (
	"fmt"
	"image"
	"math"

	"github.com/dvloznov/finance-reports/internal/aggregate"
)

// renderBoxPlot draws one box per group: Q1..Q3 box, median line, whiskers
// and outlier markers.
func renderBoxPlot(title, xName, yName string, boxes []aggregate.BoxStats, opts Options) ([]byte, error) {
	if len(boxes) == 0 {
		return placeholder(title, opts)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		lo = math.Min(lo, b.WhiskerLow)
		hi = math.Max(hi, b.WhiskerHigh)
		for _, o := range b.Outliers {
			lo = math.Min(lo, o)
			hi = math.Max(hi, o)
		}
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	lo, hi = lo-pad, hi+pad

	c := newCanvas(opts.Width, opts.Height)
	c.title(title)

	area := image.Rect(90, 40, opts.Width-20, opts.Height-50)
	if area.Dx() <= 0 || area.Dy() <= 0 {
		return nil, fmt.Errorf("canvas %dx%d too small", opts.Width, opts.Height)
	}
	y := func(v float64) int {
		return area.Max.Y - int(math.Round((v-lo)/(hi-lo)*float64(area.Dy())))
	}

	step := niceStep(hi-lo, 6)
	for v := math.Ceil(lo/step) * step; v <= hi; v += step {
		py := y(v)
		c.hline(area.Min.X, area.Max.X, py, colorGrid)
		c.textRight(area.Min.X-6, py, fmt.Sprintf("%.0f", v), colorText)
	}
	c.outline(area, colorText)

	slot := float64(area.Dx()) / float64(len(boxes))
	half := int(slot * 0.3)
	for i, b := range boxes {
		t := 0.5
		if len(boxes) > 1 {
			t = float64(i) / float64(len(boxes)-1)
		}
		fillCol := paletteCoolWarm.at(t)
		cx := area.Min.X + int(math.Round((float64(i)+0.5)*slot))

		c.vline(cx, y(b.WhiskerHigh), y(b.Q3), colorBlack)
		c.vline(cx, y(b.Q1), y(b.WhiskerLow), colorBlack)
		c.hline(cx-half/2, cx+half/2, y(b.WhiskerHigh), colorBlack)
		c.hline(cx-half/2, cx+half/2, y(b.WhiskerLow), colorBlack)

		box := image.Rect(cx-half, y(b.Q3), cx+half+1, y(b.Q1)+1)
		c.fill(box, fillCol)
		c.outline(box, colorBlack)
		c.hline(cx-half, cx+half, y(b.Median), colorBlack)

		for _, o := range b.Outliers {
			oy := y(o)
			c.outline(image.Rect(cx-2, oy-2, cx+3, oy+3), colorBlack)
		}
		c.textCentered(cx, area.Max.Y+12, b.Key, colorText)
	}

	c.textCentered((area.Min.X+area.Max.X)/2, area.Max.Y+32, xName, colorBlack)
	c.text(4, area.Min.Y-8, yName, colorBlack)
	return c.png()
}

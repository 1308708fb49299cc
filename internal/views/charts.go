package views

import (
	"bytes"
	"fmt"
	"math"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/dvloznov/finance-reports/internal/domain"
)

var (
	colorSkyBlue = drawing.Color{R: 135, G: 206, B: 235, A: 255}
	colorGreen   = drawing.Color{R: 0, G: 128, B: 0, A: 255}
	colorTeal    = drawing.Color{R: 0, G: 128, B: 128, A: 255}
	colorPurple  = drawing.Color{R: 128, G: 0, B: 128, A: 255}
	colorOrange  = drawing.Color{R: 255, G: 165, B: 0, A: 255}

	seriesColors = []drawing.Color{
		{R: 31, G: 119, B: 180, A: 255},
		{R: 255, G: 127, B: 14, A: 255},
		{R: 44, G: 160, B: 44, A: 255},
		{R: 214, G: 39, B: 40, A: 255},
		{R: 148, G: 103, B: 189, A: 255},
		{R: 140, G: 86, B: 75, A: 255},
		{R: 227, G: 119, B: 194, A: 255},
		{R: 127, G: 127, B: 127, A: 255},
		{R: 188, G: 189, B: 34, A: 255},
		{R: 23, G: 190, B: 207, A: 255},
	}
)

// bar is one labelled bar.
type bar struct {
	Label string
	Value float64
}

func renderBarChart(title, yName string, bars []bar, fill drawing.Color, opts Options) ([]byte, error) {
	if len(bars) == 0 {
		return placeholder(title, opts)
	}

	values := make([]chart.Value, len(bars))
	lo, hi := 0.0, 0.0
	for i, b := range bars {
		values[i] = chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: fill, StrokeColor: fill},
		}
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}

	barWidth := int(float64(opts.Width-120) / float64(len(bars)) * 0.6)
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 4 {
		barWidth = 4
	}

	bc := chart.BarChart{
		Title:      title,
		Width:      opts.Width,
		Height:     opts.Height,
		BarWidth:   barWidth,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          paddedRange(lo, hi),
			ValueFormatter: chart.FloatValueFormatter,
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPieChart(title string, slices []bar, opts Options) ([]byte, error) {
	total := 0.0
	for _, s := range slices {
		if s.Value < 0 {
			return nil, fmt.Errorf("pie slice %q has negative value %.2f", s.Label, s.Value)
		}
		total += s.Value
	}
	side := opts.Width
	if opts.Height < side {
		side = opts.Height
	}
	square := Options{Width: side, Height: side}
	if len(slices) == 0 || total == 0 {
		return placeholder(title, square)
	}

	values := make([]chart.Value, len(slices))
	for i, s := range slices {
		values[i] = chart.Value{
			Label: fmt.Sprintf("%s %1.1f%%", s.Label, s.Value/total*100),
			Value: s.Value,
			Style: chart.Style{FillColor: seriesColors[i%len(seriesColors)]},
		}
	}

	pc := chart.PieChart{
		Title:  title,
		Width:  side,
		Height: side,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}

// line is one named time series.
type line struct {
	Name   string
	Times  []time.Time
	Values []float64
}

func renderTimeChart(title, xName, yName string, lines []line, legend bool, opts Options) ([]byte, error) {
	var series []chart.Series
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, l := range lines {
		if len(l.Times) == 0 {
			continue
		}
		times, ys := l.Times, l.Values
		// a single point has no x range; stretch it over a day
		if len(times) == 1 {
			times = []time.Time{times[0], times[0].Add(24 * time.Hour)}
			ys = []float64{ys[0], ys[0]}
		}
		for _, v := range ys {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		col := seriesColors[i%len(seriesColors)]
		if len(lines) == 1 {
			col = colorOrange
		}
		series = append(series, chart.TimeSeries{
			Name:    l.Name,
			XValues: times,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
				DotColor:    col,
				DotWidth:    4,
			},
		})
	}
	if len(series) == 0 {
		return placeholder(title, opts)
	}

	ch := chart.Chart{
		Title:      title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           xName,
			ValueFormatter: chart.TimeValueFormatterWithFormat(domain.DateLayout),
		},
		YAxis: chart.YAxis{
			Name:           yName,
			Range:          paddedRange(lo, hi),
			ValueFormatter: chart.FloatValueFormatter,
		},
		Series: series,
	}
	if legend {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render time chart: %w", err)
	}
	return buf.Bytes(), nil
}

// paddedRange returns a y range containing [lo, hi] with some headroom and
// a non-zero span.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	if hi == lo {
		if hi == 0 {
			return &chart.ContinuousRange{Min: 0, Max: 1}
		}
		lo, hi = math.Min(0, lo), math.Max(0, hi)
	}
	pad := (hi - lo) * 0.05
	if lo < 0 {
		lo -= pad
	}
	return &chart.ContinuousRange{Min: lo, Max: hi + pad}
}

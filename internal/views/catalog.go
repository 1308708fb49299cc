package views

import (
	"fmt"
	"math"

	"github.com/dvloznov/finance-reports/internal/aggregate"
	"github.com/dvloznov/finance-reports/internal/domain"
)

// View names.
const (
	RegionSummary      = "region-summary"
	AmountDistribution = "amount-distribution"
	BoxplotByRegion    = "boxplot-by-region"
	RegionPie          = "region-pie"
	TrendOverTime      = "trend-over-time"
	TransactionHeatmap = "transaction-heatmap"
	ProductSummary     = "product-summary"
	TimeTrendByRegion  = "time-trend-by-region"
	Frequency          = "transaction-frequency"
	CorrelationMatrix  = "correlation-matrix"
	DerivedExport      = "derived-export"
)

// Charts returns the chart views in the order the pipeline renders them.
func Charts() []Spec {
	return []Spec{
		{
			Name:     RegionSummary,
			Title:    "Transaction amount by region",
			FileName: "region_summary.png",
			Kind:     KindImage,
			Source:   SourceRegions,
			Render:   renderRegionSummary,
		},
		{
			Name:     AmountDistribution,
			Title:    "Distribution of transaction amounts",
			FileName: "transaction_distribution.png",
			Kind:     KindImage,
			Source:   SourceTable,
			Requires: []domain.Column{domain.ColumnAmount},
			Render:   renderDistribution,
		},
		{
			Name:     BoxplotByRegion,
			Title:    "Boxplot: transaction amount by region",
			FileName: "boxplot_by_region.png",
			Kind:     KindImage,
			Source:   SourceSubset,
			Requires: []domain.Column{domain.ColumnRegion, domain.ColumnAmount},
			Render:   renderBoxplotByRegion,
		},
		{
			Name:     RegionPie,
			Title:    "Share of transaction amount by region",
			FileName: "region_pie_chart.png",
			Kind:     KindImage,
			Source:   SourceRegions,
			Render:   renderRegionPie,
		},
		{
			Name:      TrendOverTime,
			Title:     "Transaction trend over time",
			FileName:  "transaction_trend.png",
			Kind:      KindImage,
			Source:    SourceTable,
			Requires:  []domain.Column{domain.ColumnDate, domain.ColumnAmount},
			OnMissing: MissingSkips,
			Render:    renderTrend,
		},
		{
			Name:      TransactionHeatmap,
			Title:     "Transaction heatmap (sum)",
			FileName:  "transaction_heatmap.png",
			Kind:      KindImage,
			Source:    SourceTable,
			Requires:  []domain.Column{domain.ColumnCategory, domain.ColumnRegion, domain.ColumnAmount},
			OnMissing: MissingSkips,
			Render:    renderHeatmap,
		},
		{
			Name:     ProductSummary,
			Title:    "Transaction amount by product type",
			FileName: "product_summary.png",
			Kind:     KindImage,
			Source:   SourceProducts,
			Render:   renderProductSummary,
		},
		{
			Name:      TimeTrendByRegion,
			Title:     "Transaction trends by region",
			FileName:  "time_trend_by_region.png",
			Kind:      KindImage,
			Source:    SourceTable,
			Requires:  []domain.Column{domain.ColumnDate, domain.ColumnRegion, domain.ColumnAmount},
			OnMissing: MissingPlaceholder,
			Render:    renderTimeTrendByRegion,
		},
		{
			Name:     Frequency,
			Title:    "Transaction frequency by product type",
			FileName: "transaction_frequency.png",
			Kind:     KindImage,
			Source:   SourceTable,
			Requires: []domain.Column{domain.ColumnProductType},
			Render:   renderFrequency,
		},
		{
			Name:     CorrelationMatrix,
			Title:    "Correlation matrix",
			FileName: "correlation_matrix.png",
			Kind:     KindImage,
			Source:   SourceCorrelation,
			Render:   renderCorrelation,
		},
	}
}

// Export returns the derived-export view, persisted after all charts.
func Export() Spec {
	return Spec{
		Name:     DerivedExport,
		Title:    "Processed transaction data",
		FileName: "processed_transaction_data.csv",
		Kind:     KindTable,
		Source:   SourceSubset,
		Render:   renderExport,
	}
}

// All returns the eleven views in pipeline order.
func All() []Spec {
	return append(Charts(), Export())
}

func totalsToBars(totals []aggregate.Total) []bar {
	bars := make([]bar, len(totals))
	for i, t := range totals {
		bars[i] = bar{Label: t.Key, Value: t.Sum.InexactFloat64()}
	}
	return bars
}

func renderRegionSummary(title string, in *Input, opts Options) ([]byte, error) {
	return renderBarChart(title, "Amount", totalsToBars(in.Regions), colorSkyBlue, opts)
}

func renderRegionPie(title string, in *Input, opts Options) ([]byte, error) {
	return renderPieChart(title, totalsToBars(in.Regions), opts)
}

func renderProductSummary(title string, in *Input, opts Options) ([]byte, error) {
	return renderBarChart(title, "Amount", totalsToBars(in.Products), colorPurple, opts)
}

func renderDistribution(title string, in *Input, opts Options) ([]byte, error) {
	amounts, err := aggregate.Amounts(in.Table)
	if err != nil {
		return nil, err
	}
	bins := aggregate.Histogram(amounts)
	bars := make([]bar, len(bins))
	for i, b := range bins {
		bars[i] = bar{Label: fmt.Sprintf("%.0f-%.0f", b.Low, b.High), Value: float64(b.Count)}
	}
	return renderBarChart(title, "Frequency", bars, colorGreen, opts)
}

func renderBoxplotByRegion(title string, in *Input, opts Options) ([]byte, error) {
	boxes, err := aggregate.BoxByRegion(in.Subset)
	if err != nil {
		return nil, err
	}
	return renderBoxPlot(title, "Region", "Amount", boxes, opts)
}

func renderTrend(title string, in *Input, opts Options) ([]byte, error) {
	points, err := aggregate.SumByDate(in.Table)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no parseable dates in column %s", domain.ColumnDate)
	}

	l := line{Name: "Amount"}
	for _, p := range points {
		l.Times = append(l.Times, p.Date)
		l.Values = append(l.Values, p.Sum.InexactFloat64())
	}
	return renderTimeChart(title, "Date", "Amount", []line{l}, false, opts)
}

func renderTimeTrendByRegion(title string, in *Input, opts Options) ([]byte, error) {
	series, err := aggregate.SumByDateAndRegion(in.Table)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no parseable dates in column %s", domain.ColumnDate)
	}

	lines := make([]line, len(series))
	for i, s := range series {
		lines[i].Name = s.Region
		for _, p := range s.Points {
			lines[i].Times = append(lines[i].Times, p.Date)
			lines[i].Values = append(lines[i].Values, p.Sum.InexactFloat64())
		}
	}
	return renderTimeChart(title, "Date", "Amount", lines, true, opts)
}

func renderFrequency(title string, in *Input, opts Options) ([]byte, error) {
	counts, err := aggregate.CountByProduct(in.Table)
	if err != nil {
		return nil, err
	}
	bars := make([]bar, len(counts))
	for i, c := range counts {
		bars[i] = bar{Label: c.Key, Value: float64(c.N)}
	}
	return renderBarChart(title, "Transactions", bars, colorTeal, opts)
}

func renderHeatmap(title string, in *Input, opts Options) ([]byte, error) {
	p, err := aggregate.Pivot(in.Table, domain.ColumnRegion, domain.ColumnCategory)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, len(p.Values))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, row := range p.Values {
		values[i] = make([]float64, len(row))
		for j, v := range row {
			f := v.InexactFloat64()
			values[i][j] = f
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
	}

	return renderGrid(grid{
		Title:     title,
		XName:     "Category",
		YName:     "Region",
		RowLabels: p.Rows,
		ColLabels: p.Cols,
		Values:    values,
		Format:    "%.0f",
		Palette:   paletteYlGnBu,
		Min:       lo,
		Max:       hi,
	}, opts)
}

func renderCorrelation(title string, in *Input, opts Options) ([]byte, error) {
	m := in.Correlation
	return renderGrid(grid{
		Title:     title,
		RowLabels: m.Columns,
		ColLabels: m.Columns,
		Values:    m.Values,
		Format:    "%.2f",
		Palette:   paletteCoolWarm,
		Min:       -1,
		Max:       1,
	}, opts)
}

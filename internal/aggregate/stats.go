package aggregate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

// BoxStats summarises the Amount distribution of one group.
// WhiskerLow/WhiskerHigh are the most extreme values within 1.5 IQR of the box.
type BoxStats struct {
	Key         string
	Q1          float64
	Median      float64
	Q3          float64
	WhiskerLow  float64
	WhiskerHigh float64
	Outliers    []float64
}

// Bin is one histogram bucket covering [Low, High).
// The last bin also includes High.
type Bin struct {
	Low   float64
	High  float64
	Count int
}

// Amounts returns the Amount column as float64 in row order.
func Amounts(table *records.Table) ([]float64, error) {
	if !table.Has(domain.ColumnAmount) {
		return nil, &domain.SchemaError{Operation: "amounts", Column: domain.ColumnAmount}
	}
	out := make([]float64, table.Len())
	for i := range out {
		out[i] = table.At(i).Amount.InexactFloat64()
	}
	return out, nil
}

// BoxByRegion computes box statistics per Region in first-seen order.
func BoxByRegion(table *records.Table) ([]BoxStats, error) {
	if col, missing := table.Missing(domain.ColumnRegion, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "boxByRegion", Column: col}
	}

	index := make(map[string]int)
	var keys []string
	var groups [][]float64
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		pos, ok := index[r.Region]
		if !ok {
			pos = len(keys)
			index[r.Region] = pos
			keys = append(keys, r.Region)
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], r.Amount.InexactFloat64())
	}

	out := make([]BoxStats, len(keys))
	for i, key := range keys {
		out[i] = boxStats(key, groups[i])
	}
	return out, nil
}

func boxStats(key string, values []float64) BoxStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := BoxStats{
		Key:    key,
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
	}
	iqr := s.Q3 - s.Q1
	lo, hi := s.Q1-1.5*iqr, s.Q3+1.5*iqr

	s.WhiskerLow, s.WhiskerHigh = s.Q1, s.Q3
	for _, v := range sorted {
		if v >= lo {
			s.WhiskerLow = v
			break
		}
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i] <= hi {
			s.WhiskerHigh = sorted[i]
			break
		}
	}
	for _, v := range sorted {
		if v < lo || v > hi {
			s.Outliers = append(s.Outliers, v)
		}
	}
	return s
}

// quantile uses linear interpolation between closest ranks (numpy's default).
// sorted must be ascending.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Histogram buckets values into equal-width bins using Sturges' rule.
func Histogram(values []float64) []Bin {
	n := len(values)
	if n == 0 {
		return nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return []Bin{{Low: lo - 0.5, High: hi + 0.5, Count: n}}
	}

	k := int(math.Ceil(math.Log2(float64(n)))) + 1
	edges := floats.Span(make([]float64, k+1), lo, hi)
	edges[k] = hi

	// The last bin is closed on the right.
	dividers := append([]float64(nil), edges...)
	dividers[k] = math.Nextafter(hi, math.Inf(1))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	bins := make([]Bin, k)
	for i := range bins {
		bins[i] = Bin{Low: edges[i], High: edges[i+1], Count: int(counts[i])}
	}
	return bins
}

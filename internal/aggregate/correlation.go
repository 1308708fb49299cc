package aggregate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

// CorrelationMatrix holds a symmetric Pearson correlation matrix across
// numeric columns. Values is row-major: Values[i][j].
type CorrelationMatrix struct {
	Columns []string
	Values  [][]float64
}

// numericColumns maps each numeric column to its value extractor. Amount is
// the only one today, so the matrix is 1x1; pearson fills the off-diagonal
// once another numeric column is added here.
var numericColumns = []struct {
	col   domain.Column
	value func(domain.TransactionRecord) float64
}{
	{domain.ColumnAmount, func(r domain.TransactionRecord) float64 { return r.Amount.InexactFloat64() }},
}

// Correlation computes the Pearson matrix over the numeric columns present in
// table. A single numeric column yields the 1x1 matrix [[1]].
func Correlation(table *records.Table) (*CorrelationMatrix, error) {
	var names []string
	var series [][]float64
	for _, nc := range numericColumns {
		if !table.Has(nc.col) {
			continue
		}
		vals := make([]float64, table.Len())
		for i := range vals {
			vals[i] = nc.value(table.At(i))
		}
		names = append(names, string(nc.col))
		series = append(series, vals)
	}
	if len(names) == 0 {
		return nil, &domain.SchemaError{Operation: "correlation", Column: domain.ColumnAmount}
	}
	return correlationOf(names, series), nil
}

func correlationOf(names []string, series [][]float64) *CorrelationMatrix {
	n := len(names)
	m := &CorrelationMatrix{
		Columns: names,
		Values:  make([][]float64, n),
	}
	for a := 0; a < n; a++ {
		m.Values[a] = make([]float64, n)
		for b := 0; b < n; b++ {
			if a == b {
				m.Values[a][b] = 1
				continue
			}
			m.Values[a][b] = pearson(series[a], series[b])
		}
	}
	return m
}

// pearson returns the correlation coefficient of x and y, clamped to [-1, 1].
// Degenerate input (fewer than two points, zero variance) yields 0.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(y) != len(x) {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

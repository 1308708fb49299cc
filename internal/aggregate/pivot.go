package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

// PivotTable is a zero-filled cross-tabulation of summed Amount.
// Rows and Cols are sorted; Values[i][j] belongs to (Rows[i], Cols[j]).
type PivotTable struct {
	RowKey domain.Column
	ColKey domain.Column
	Rows   []string
	Cols   []string
	Values [][]decimal.Decimal
}

// At returns the cell for (row, col), zero when either key is unknown.
func (p *PivotTable) At(row, col string) decimal.Decimal {
	i := sort.SearchStrings(p.Rows, row)
	j := sort.SearchStrings(p.Cols, col)
	if i >= len(p.Rows) || p.Rows[i] != row || j >= len(p.Cols) || p.Cols[j] != col {
		return decimal.Zero
	}
	return p.Values[i][j]
}

// Pivot builds the rowKey x colKey table of summed Amount over table.
func Pivot(table *records.Table, rowKey, colKey domain.Column) (*PivotTable, error) {
	if col, missing := table.Missing(rowKey, colKey, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "pivot", Column: col}
	}

	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		rowSet[valueOf(r, rowKey)] = struct{}{}
		colSet[valueOf(r, colKey)] = struct{}{}
	}

	p := &PivotTable{
		RowKey: rowKey,
		ColKey: colKey,
		Rows:   sortedKeys(rowSet),
		Cols:   sortedKeys(colSet),
	}
	rowIdx := indexOf(p.Rows)
	colIdx := indexOf(p.Cols)

	p.Values = make([][]decimal.Decimal, len(p.Rows))
	for i := range p.Values {
		p.Values[i] = make([]decimal.Decimal, len(p.Cols))
		for j := range p.Values[i] {
			p.Values[i][j] = decimal.Zero
		}
	}

	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		ri := rowIdx[valueOf(r, rowKey)]
		ci := colIdx[valueOf(r, colKey)]
		p.Values[ri][ci] = p.Values[ri][ci].Add(r.Amount)
	}
	return p, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}

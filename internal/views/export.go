package views

import (
	"bytes"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

// renderExport writes the filtered subset as CSV with the source header
// order. Dates use their canonical form; extra columns pass through.
func renderExport(_ string, in *Input, _ Options) ([]byte, error) {
	return EncodeCSV(in.Subset)
}

// EncodeCSV serialises table as CSV. The output depends only on the table
// contents, so equal tables encode to identical bytes.
func EncodeCSV(table *records.Table) ([]byte, error) {
	header := table.Header()
	rows := table.Records()

	cols := make([]series.Series, len(header))
	for j, name := range header {
		values := make([]string, len(rows))
		for i, r := range rows {
			values[i] = cell(table, r, name)
		}
		cols[j] = series.New(values, series.String, name)
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, fmt.Errorf("build export frame: %w", df.Err)
	}

	var buf bytes.Buffer
	if err := df.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("write export csv: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(table *records.Table, r domain.TransactionRecord, name string) string {
	col, ok := records.CanonicalColumn(name)
	if !ok || table.HeaderName(col) != name {
		return r.Extra[name]
	}
	switch col {
	case domain.ColumnDate:
		return r.DateString()
	case domain.ColumnRegion:
		return r.Region
	case domain.ColumnCategory:
		return r.Category
	case domain.ColumnProductType:
		return r.ProductType
	case domain.ColumnAmount:
		return r.Amount.String()
	}
	return ""
}

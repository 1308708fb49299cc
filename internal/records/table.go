package records

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-reports/internal/domain"
)

// Table is the in-memory RecordTable: transaction rows in source file order
// plus the header they were read with. Aggregates and views read it; only
// NormalizeDates mutates it.
type Table struct {
	header  []string
	columns map[domain.Column]string // canonical column -> header name in the source
	records []domain.TransactionRecord
}

// New builds a table from a header and rows. Header names are matched to the
// fixed columns with CanonicalColumn; other names are treated as extra columns.
func New(header []string, rows []domain.TransactionRecord) *Table {
	t := &Table{
		header:  append([]string(nil), header...),
		columns: make(map[domain.Column]string),
		records: append([]domain.TransactionRecord(nil), rows...),
	}
	for _, name := range header {
		if col, ok := CanonicalColumn(name); ok {
			if _, seen := t.columns[col]; !seen {
				t.columns[col] = name
			}
		}
	}
	return t
}

// CanonicalColumn maps a header name onto a fixed column, ignoring case,
// spaces, underscores and hyphens ("Product Type" and "product_type" both
// map to ProductType).
func CanonicalColumn(name string) (domain.Column, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))

	for _, col := range domain.Columns {
		if strings.ToLower(string(col)) == key {
			return col, true
		}
	}
	return "", false
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Has reports whether the source header carried the column.
func (t *Table) Has(col domain.Column) bool {
	_, ok := t.columns[col]
	return ok
}

// Missing returns the first of cols absent from the table.
func (t *Table) Missing(cols ...domain.Column) (domain.Column, bool) {
	for _, c := range cols {
		if !t.Has(c) {
			return c, true
		}
	}
	return "", false
}

// Header returns a copy of the source header.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// HeaderName returns the source header name used for a fixed column.
func (t *Table) HeaderName(col domain.Column) string {
	return t.columns[col]
}

// At returns a copy of row i.
func (t *Table) At(i int) domain.TransactionRecord {
	return t.records[i]
}

// Records returns a copy of all rows.
func (t *Table) Records() []domain.TransactionRecord {
	return append([]domain.TransactionRecord(nil), t.records...)
}

// Subset returns a new table with the same header holding the rows for which
// keep returns true, in order.
func (t *Table) Subset(keep func(domain.TransactionRecord) bool) *Table {
	out := &Table{
		header:  t.header,
		columns: t.columns,
	}
	for _, r := range t.records {
		if keep(r) {
			out.records = append(out.records, r)
		}
	}
	return out
}

// Clone returns a deep copy that shares nothing with t.
func (t *Table) Clone() *Table {
	out := &Table{
		header:  append([]string(nil), t.header...),
		columns: make(map[domain.Column]string, len(t.columns)),
		records: make([]domain.TransactionRecord, len(t.records)),
	}
	for k, v := range t.columns {
		out.columns[k] = v
	}
	for i, r := range t.records {
		if r.Extra != nil {
			extra := make(map[string]string, len(r.Extra))
			for k, v := range r.Extra {
				extra[k] = v
			}
			r.Extra = extra
		}
		out.records[i] = r
	}
	return out
}

// NormalizeDates parses every raw Date cell in place with parse. Rows whose
// cell does not parse keep their raw value. It returns the number of rows
// holding a parsed date afterwards.
func (t *Table) NormalizeDates(parse func(string) (time.Time, bool)) int {
	parsed := 0
	for i := range t.records {
		r := &t.records[i]
		if !r.HasDate {
			if d, ok := parse(r.DateRaw); ok {
				r.Date = d
				r.HasDate = true
			}
		}
		if r.HasDate {
			parsed++
		}
	}
	return parsed
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names one of the fixed fields of the transaction export.
type Column string

const (
	ColumnDate        Column = "Date"
	ColumnRegion      Column = "Region"
	ColumnCategory    Column = "Category"
	ColumnProductType Column = "ProductType"
	ColumnAmount      Column = "Amount"
)

// Columns lists the known columns in canonical export order.
var Columns = []Column{ColumnDate, ColumnRegion, ColumnCategory, ColumnProductType, ColumnAmount}

// TransactionRecord is one row of the source table.
// It is a value type; copies never share state with the loaded table.
type TransactionRecord struct {
	DateRaw string    // cell as read from the source file
	Date    time.Time // set by date normalization when DateRaw parses
	HasDate bool      // true once Date holds a parsed value

	Region      string
	Category    string
	ProductType string
	Amount      decimal.Decimal // signed, exact

	// Extra holds cells of columns outside the fixed set, keyed by header name,
	// so the derived export can carry them through unchanged.
	Extra map[string]string
}

// DateString returns the canonical form of the date when it has been
// normalized, falling back to the raw cell otherwise.
func (r TransactionRecord) DateString() string {
	if !r.HasDate {
		return r.DateRaw
	}
	if r.Date.Hour() == 0 && r.Date.Minute() == 0 && r.Date.Second() == 0 {
		return r.Date.Format(DateLayout)
	}
	return r.Date.Format(DateTimeLayout)
}

const (
	// DateLayout is the canonical date form written to exports.
	DateLayout = "2006-01-02"
	// DateTimeLayout is used when a date carries a time component.
	DateTimeLayout = "2006-01-02 15:04:05"
)

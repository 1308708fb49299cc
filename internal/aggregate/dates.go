package aggregate

import (
	"context"
	"strings"
	"time"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/records"
)

// dateLayouts are tried in order; the first that parses wins.
var dateLayouts = []string{
	domain.DateLayout,
	time.RFC3339,
	domain.DateTimeLayout,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
}

// ParseDate parses a raw Date cell using the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate parses the Date column of table in place. Cells that fail to
// parse are left as-is. It returns the number of rows with a parsed date; a
// table without a Date column is left untouched.
func NormalizeDate(ctx context.Context, table *records.Table) int {
	log := logger.ForStage(ctx, "aggregate")

	if !table.Has(domain.ColumnDate) {
		log.Debug().Msg("No Date column; skipping date normalization")
		return 0
	}

	parsed := table.NormalizeDates(ParseDate)
	if unparsed := table.Len() - parsed; unparsed > 0 {
		log.Warn().Int("unparsed", unparsed).Msg("Some dates could not be parsed")
	}
	return parsed
}

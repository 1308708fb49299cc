package records

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
)

// Loader reads a source table into memory.
type Loader interface {
	Load(ctx context.Context, path string) (*Table, error)
}

// CSVLoader reads header-delimited CSV exports.
type CSVLoader struct{}

// NewCSVLoader creates a new CSVLoader.
func NewCSVLoader() *CSVLoader {
	return &CSVLoader{}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads all rows eagerly, preserving file order. Every column is read as
// text; Amount is parsed as a decimal and rows where it does not parse are
// dropped. It fails with *domain.IngestError when the file is missing,
// unreadable or yields no rows.
func (l *CSVLoader) Load(ctx context.Context, path string) (*Table, error) {
	log := logger.ForStage(ctx, "load")

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.IngestError{Path: path, Err: err}
	}
	b = bytes.TrimPrefix(b, utf8BOM)

	df := dataframe.ReadCSV(bytes.NewReader(b),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return nil, &domain.IngestError{Path: path, Err: df.Err}
	}

	header := df.Names()
	cells := make(map[string][]string, len(header))
	for _, name := range header {
		cells[name] = df.Col(name).Records()
	}

	table := New(header, nil)
	amountCol, hasAmount := table.columns[domain.ColumnAmount]

	skipped := 0
	for i := 0; i < df.Nrow(); i++ {
		rec := domain.TransactionRecord{}
		for _, name := range header {
			v := cells[name][i]
			col, known := CanonicalColumn(name)
			if !known || table.columns[col] != name {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[name] = v
				continue
			}
			switch col {
			case domain.ColumnDate:
				rec.DateRaw = strings.TrimSpace(v)
			case domain.ColumnRegion:
				rec.Region = v
			case domain.ColumnCategory:
				rec.Category = v
			case domain.ColumnProductType:
				rec.ProductType = v
			}
		}

		if hasAmount {
			amount, err := decimal.NewFromString(strings.TrimSpace(cells[amountCol][i]))
			if err != nil {
				skipped++
				continue
			}
			rec.Amount = amount
		}
		table.records = append(table.records, rec)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Str("column", amountCol).Msg("Dropped rows with unparseable amount")
	}
	if table.Len() == 0 {
		return nil, &domain.IngestError{Path: path, Err: errors.New("no parseable rows")}
	}

	log.Info().
		Str("path", path).
		Int("rows", table.Len()).
		Int("columns", len(header)).
		Msgf("Loaded %d records", table.Len())

	return table, nil
}

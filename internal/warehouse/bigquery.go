package warehouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/records"
)

// batchSize bounds the rows sent in one streaming insert request.
const batchSize = 500

// ExportRow is one filtered transaction as stored in the warehouse table.
type ExportRow struct {
	RunID string `bigquery:"run_id"` // REQUIRED

	Date    bigquery.NullDate `bigquery:"date"`     // NULLABLE, set when the source date parsed
	DateRaw string            `bigquery:"date_raw"` // REQUIRED STRING, source cell

	Region      bigquery.NullString `bigquery:"region"`
	Category    bigquery.NullString `bigquery:"category"`
	ProductType bigquery.NullString `bigquery:"product_type"`

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

// Sink receives the derived export rows of a run.
type Sink interface {
	Insert(ctx context.Context, runID string, subset *records.Table) error
}

// RowInserter is the part of *bigquery.Inserter the sink needs.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQuerySink streams export rows into a BigQuery table.
type BigQuerySink struct {
	client   *bigquery.Client
	table    *bigquery.Table
	inserter RowInserter
	now      func() time.Time
}

// NewBigQuerySink creates a client for projectID and targets dataset.table.
func NewBigQuerySink(ctx context.Context, projectID, dataset, table string) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuerySink: bigquery client: %w", err)
	}
	// Use fully qualified table name to avoid project ID issues
	t := client.DatasetInProject(projectID, dataset).Table(table)
	return &BigQuerySink{client: client, table: t, inserter: t.Inserter(), now: time.Now}, nil
}

// NewSinkWithInserter builds a sink around an existing inserter.
func NewSinkWithInserter(inserter RowInserter) *BigQuerySink {
	return &BigQuerySink{inserter: inserter, now: time.Now}
}

// Close closes the BigQuery client connection.
func (s *BigQuerySink) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Insert converts subset to ExportRows and inserts them in batches.
func (s *BigQuerySink) Insert(ctx context.Context, runID string, subset *records.Table) error {
	rows := ToRows(runID, subset, s.now().UTC())
	if len(rows) == 0 {
		return nil
	}

	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("Insert: inserting rows %d-%d: %w", start, end-1, err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().Str("run_id", runID).Int("rows", len(rows)).Msg("Export rows inserted into warehouse")
	return nil
}

// ToRows maps subset onto warehouse rows stamped with runID and loaded.
func ToRows(runID string, subset *records.Table, loaded time.Time) []*ExportRow {
	rows := make([]*ExportRow, 0, subset.Len())
	for _, r := range subset.Records() {
		row := &ExportRow{
			RunID:       runID,
			DateRaw:     r.DateRaw,
			Region:      nullString(r.Region),
			Category:    nullString(r.Category),
			ProductType: nullString(r.ProductType),
			Amount:      r.Amount.Rat(),
			LoadedTS:    loaded,
		}
		if r.HasDate {
			row.Date = bigquery.NullDate{Date: civil.DateOf(r.Date), Valid: true}
		}
		rows = append(rows, row)
	}
	return rows
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

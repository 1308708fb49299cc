package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/dvloznov/finance-reports/internal/logger"
)

// Schema is the export table layout. It matches the bigquery tags on ExportRow.
func Schema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "run_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "date", Type: bigquery.DateFieldType},
		{Name: "date_raw", Type: bigquery.StringFieldType, Required: true},
		{Name: "region", Type: bigquery.StringFieldType},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "product_type", Type: bigquery.StringFieldType},
		{Name: "amount", Type: bigquery.NumericFieldType, Required: true},
		{Name: "loaded_ts", Type: bigquery.TimestampFieldType, Required: true},
	}
}

// TableMetadata is the metadata used when the export table is created:
// daily partitions on loaded_ts, clustered by run.
func TableMetadata() *bigquery.TableMetadata {
	return &bigquery.TableMetadata{
		Schema: Schema(),
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "loaded_ts",
		},
		Clustering:  &bigquery.Clustering{Fields: []string{"run_id"}},
		Description: "Filtered transactions exported by report runs",
	}
}

// EnsureTable creates the export table when it does not exist yet.
// It reports whether the table was created.
func (s *BigQuerySink) EnsureTable(ctx context.Context) (bool, error) {
	if s.table == nil {
		return false, fmt.Errorf("EnsureTable: sink has no table handle")
	}
	log := logger.FromContext(ctx).With().Str("table", s.table.FullyQualifiedName()).Logger()

	_, err := s.table.Metadata(ctx)
	if err == nil {
		log.Info().Msg("Export table already exists")
		return false, nil
	}
	if !isNotFound(err) {
		return false, fmt.Errorf("EnsureTable: read metadata: %w", err)
	}

	if err := s.table.Create(ctx, TableMetadata()); err != nil {
		return false, fmt.Errorf("EnsureTable: create table: %w", err)
	}
	log.Info().Msg("Export table created")
	return true, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

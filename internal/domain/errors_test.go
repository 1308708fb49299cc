package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewError_UnwrapsSchemaError(t *testing.T) {
	cause := &SchemaError{Operation: "boxplot", Column: ColumnRegion}
	err := fmt.Errorf("render: %w", &ViewError{View: "boxplot-by-region", Err: cause})

	var viewErr *ViewError
	require.True(t, errors.As(err, &viewErr))
	assert.Equal(t, "boxplot-by-region", viewErr.View)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, ColumnRegion, schemaErr.Column)
	assert.Contains(t, err.Error(), `missing required column "Region"`)
}

func TestIngestAndIOErrors_Unwrap(t *testing.T) {
	ingest := &IngestError{Path: "data/x.csv", Err: fs.ErrNotExist}
	assert.True(t, errors.Is(ingest, fs.ErrNotExist))
	assert.Contains(t, ingest.Error(), "data/x.csv")

	ioErr := &IOError{Path: "out/a.png", Err: fs.ErrPermission}
	assert.True(t, errors.Is(ioErr, fs.ErrPermission))

	reg := &RegistrationError{Key: "/big_data_node", Err: errors.New("dial tcp: refused")}
	assert.Contains(t, reg.Error(), "/big_data_node")
}

func TestTransactionRecord_DateString(t *testing.T) {
	tests := []struct {
		name   string
		record TransactionRecord
		want   string
	}{
		{
			name:   "unparsed keeps raw",
			record: TransactionRecord{DateRaw: "not a date"},
			want:   "not a date",
		},
		{
			name:   "date only",
			record: TransactionRecord{DateRaw: "01/02/2024", HasDate: true, Date: mustDate(t, "2024-01-02")},
			want:   "2024-01-02",
		},
		{
			name: "with time",
			record: TransactionRecord{
				DateRaw: "2024-01-02T10:30:00Z",
				HasDate: true,
				Date:    mustDate(t, "2024-01-02").Add(10*time.Hour + 30*time.Minute),
			},
			want: "2024-01-02 10:30:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.DateString())
		})
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

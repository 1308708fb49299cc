package records

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transaction_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testContext() (context.Context, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return logger.WithContext(context.Background(), logger.NewWithWriter(buf)), buf
}

func TestCSVLoader_Load(t *testing.T) {
	path := writeCSV(t, "Date,Region,Category,Product Type,Amount,Channel\n"+
		"2024-01-01,North,Food,Card,600.50,web\n"+
		"2024-01-02,South,Travel,Loan,100,branch\n"+
		",North,Food,Card,-25,web\n")

	ctx, buf := testContext()
	table, err := NewCSVLoader().Load(ctx, path)
	require.NoError(t, err)

	require.Equal(t, 3, table.Len())
	assert.True(t, table.Has(domain.ColumnProductType), "Product Type maps onto ProductType")
	assert.Equal(t, "Product Type", table.HeaderName(domain.ColumnProductType))
	assert.Equal(t, []string{"Date", "Region", "Category", "Product Type", "Amount", "Channel"}, table.Header())

	first := table.At(0)
	assert.Equal(t, "2024-01-01", first.DateRaw)
	assert.False(t, first.HasDate, "loader does not normalize dates")
	assert.Equal(t, "North", first.Region)
	assert.Equal(t, "Card", first.ProductType)
	assert.Equal(t, "600.5", first.Amount.String())
	assert.Equal(t, "web", first.Extra["Channel"])

	assert.Equal(t, "", table.At(2).DateRaw)
	assert.Equal(t, "-25", table.At(2).Amount.String())

	assert.Contains(t, buf.String(), `"rows":3`)
}

func TestCSVLoader_StripsBOMAndDropsBadAmounts(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBFRegion,Amount\nNorth,10\nSouth,n/a\nEast,5\n")

	ctx, buf := testContext()
	table, err := NewCSVLoader().Load(ctx, path)
	require.NoError(t, err)

	assert.True(t, table.Has(domain.ColumnRegion))
	assert.False(t, table.Has(domain.ColumnDate))
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "East", table.At(1).Region)
	assert.Contains(t, buf.String(), `"skipped":1`)
}

func TestCSVLoader_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.csv") },
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeCSV(t, "") },
		},
		{
			name: "header only",
			path: func(t *testing.T) string { return writeCSV(t, "Date,Region,Amount\n") },
		},
		{
			name: "no parseable amounts",
			path: func(t *testing.T) string { return writeCSV(t, "Region,Amount\nNorth,abc\n") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := testContext()
			_, err := NewCSVLoader().Load(ctx, tt.path(t))
			require.Error(t, err)

			var ingestErr *domain.IngestError
			assert.True(t, errors.As(err, &ingestErr), "want IngestError, got %T", err)
		})
	}
}

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		input  string
		want   domain.Column
		wantOK bool
	}{
		{"Date", domain.ColumnDate, true},
		{" amount ", domain.ColumnAmount, true},
		{"Product Type", domain.ColumnProductType, true},
		{"product_type", domain.ColumnProductType, true},
		{"ProductType", domain.ColumnProductType, true},
		{"Channel", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CanonicalColumn(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

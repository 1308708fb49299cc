package warehouse

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

type mockInserter struct {
	PutFunc func(ctx context.Context, src interface{}) error
}

func (m *mockInserter) Put(ctx context.Context, src interface{}) error {
	return m.PutFunc(ctx, src)
}

func subsetOf(n int) *records.Table {
	rows := make([]domain.TransactionRecord, n)
	for i := range rows {
		rows[i] = domain.TransactionRecord{DateRaw: "x", Region: "North", Amount: decimal.NewFromInt(600)}
	}
	return records.New([]string{"Date", "Region", "Amount"}, rows)
}

func TestToRows(t *testing.T) {
	loaded := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	subset := records.New([]string{"Date", "Region", "Category", "Product Type", "Amount"}, []domain.TransactionRecord{
		{
			DateRaw: "2024-03-02", Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), HasDate: true,
			Region: "North", Category: "Food", ProductType: "Card",
			Amount: decimal.RequireFromString("600.25"),
		},
		{DateRaw: "unknown", Region: "South", Amount: decimal.NewFromInt(900)},
	})

	rows := ToRows("run-1", subset, loaded)

	require.Len(t, rows, 2)
	first := rows[0]
	assert.Equal(t, "run-1", first.RunID)
	assert.True(t, first.Date.Valid)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.March, Day: 2}, first.Date.Date)
	assert.Equal(t, "North", first.Region.StringVal)
	assert.Equal(t, 0, first.Amount.Cmp(big.NewRat(2401, 4)))
	assert.Equal(t, loaded, first.LoadedTS)

	second := rows[1]
	assert.False(t, second.Date.Valid, "unparsed dates stay null")
	assert.Equal(t, "unknown", second.DateRaw)
	assert.False(t, second.Category.Valid)
}

func TestBigQuerySink_Insert(t *testing.T) {
	tests := []struct {
		name        string
		rows        int
		putErr      error
		wantBatches []int
		wantErr     bool
	}{
		{name: "empty subset skips insert", rows: 0, wantBatches: nil},
		{name: "single batch", rows: 3, wantBatches: []int{3}},
		{name: "splits into batches", rows: 1201, wantBatches: []int{500, 500, 201}},
		{name: "insert failure", rows: 2, putErr: errors.New("quota exceeded"), wantBatches: []int{2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var batches []int
			sink := NewSinkWithInserter(&mockInserter{
				PutFunc: func(_ context.Context, src interface{}) error {
					rows, ok := src.([]*ExportRow)
					require.True(t, ok)
					batches = append(batches, len(rows))
					return tt.putErr
				},
			})

			err := sink.Insert(context.Background(), "run-1", subsetOf(tt.rows))

			assert.Equal(t, tt.wantBatches, batches)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

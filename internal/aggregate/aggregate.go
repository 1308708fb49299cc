package aggregate

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/logger"
	"github.com/dvloznov/finance-reports/internal/records"
)

// DefaultThreshold is the Amount a transaction must exceed to be kept by the filter.
var DefaultThreshold = decimal.NewFromInt(500)

// Total is one key of a grouped aggregate and its summed Amount.
type Total struct {
	Key string
	Sum decimal.Decimal
}

// RegionAggregate maps Region to summed Amount in first-seen order.
type RegionAggregate []Total

// ProductAggregate maps ProductType to summed Amount, sorted descending by sum.
// Ties keep first-seen order.
type ProductAggregate []Total

// Count is one key with its number of occurrences.
type Count struct {
	Key string
	N   int
}

// Get returns the sum stored for key.
func Get(totals []Total, key string) (decimal.Decimal, bool) {
	for _, t := range totals {
		if t.Key == key {
			return t.Sum, true
		}
	}
	return decimal.Zero, false
}

// FilterByAmount keeps rows with Amount > threshold, preserving order.
func FilterByAmount(ctx context.Context, table *records.Table, threshold decimal.Decimal) (*records.Table, error) {
	if !table.Has(domain.ColumnAmount) {
		return nil, &domain.SchemaError{Operation: "filterByAmount", Column: domain.ColumnAmount}
	}

	subset := table.Subset(func(r domain.TransactionRecord) bool {
		return r.Amount.GreaterThan(threshold)
	})

	log := logger.ForStage(ctx, "aggregate")
	log.Info().
		Str("threshold", threshold.String()).
		Int("rows", subset.Len()).
		Msgf("Found %d records with amount > %s", subset.Len(), threshold.String())

	return subset, nil
}

// AggregateByRegion sums Amount per Region over the filtered subset.
func AggregateByRegion(subset *records.Table) (RegionAggregate, error) {
	if col, missing := subset.Missing(domain.ColumnRegion, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "aggregateByRegion", Column: col}
	}
	return RegionAggregate(groupSum(subset, func(r domain.TransactionRecord) string { return r.Region })), nil
}

// AggregateByProduct sums Amount per ProductType over the full table and
// sorts the result descending.
func AggregateByProduct(table *records.Table) (ProductAggregate, error) {
	if col, missing := table.Missing(domain.ColumnProductType, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "aggregateByProduct", Column: col}
	}

	totals := groupSum(table, func(r domain.TransactionRecord) string { return r.ProductType })
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Sum.GreaterThan(totals[j].Sum)
	})
	return ProductAggregate(totals), nil
}

// CountByProduct counts rows per ProductType, sorted descending by count.
// Ties keep first-seen order.
func CountByProduct(table *records.Table) ([]Count, error) {
	if !table.Has(domain.ColumnProductType) {
		return nil, &domain.SchemaError{Operation: "countByProduct", Column: domain.ColumnProductType}
	}

	index := make(map[string]int)
	var counts []Count
	for i := 0; i < table.Len(); i++ {
		key := table.At(i).ProductType
		pos, ok := index[key]
		if !ok {
			pos = len(counts)
			index[key] = pos
			counts = append(counts, Count{Key: key})
		}
		counts[pos].N++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].N > counts[j].N
	})
	return counts, nil
}

// groupSum sums Amount per key in first-seen key order.
func groupSum(table *records.Table, key func(domain.TransactionRecord) string) []Total {
	index := make(map[string]int)
	var totals []Total
	for i := 0; i < table.Len(); i++ {
		r := table.At(i)
		k := key(r)
		pos, ok := index[k]
		if !ok {
			pos = len(totals)
			index[k] = pos
			totals = append(totals, Total{Key: k, Sum: decimal.Zero})
		}
		totals[pos].Sum = totals[pos].Sum.Add(r.Amount)
	}
	return totals
}

// valueOf returns the categorical value of col for r.
func valueOf(r domain.TransactionRecord, col domain.Column) string {
	switch col {
	case domain.ColumnRegion:
		return r.Region
	case domain.ColumnCategory:
		return r.Category
	case domain.ColumnProductType:
		return r.ProductType
	case domain.ColumnDate:
		return r.DateString()
	case domain.ColumnAmount:
		return r.Amount.String()
	}
	return ""
}

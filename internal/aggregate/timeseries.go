package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-reports/internal/domain"
	"github.com/dvloznov/finance-reports/internal/records"
)

// DatePoint is the summed Amount of all rows sharing one timestamp.
type DatePoint struct {
	Date time.Time
	Sum  decimal.Decimal
}

// RegionSeries is the per-date series of one Region.
type RegionSeries struct {
	Region string
	Points []DatePoint
}

// SumByDate sums Amount per parsed date in ascending date order. Rows whose
// date did not parse are ignored.
func SumByDate(table *records.Table) ([]DatePoint, error) {
	if col, missing := table.Missing(domain.ColumnDate, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "sumByDate", Column: col}
	}
	return sumByDate(table.Records()), nil
}

// SumByDateAndRegion builds one date series per Region, regions sorted by name.
func SumByDateAndRegion(table *records.Table) ([]RegionSeries, error) {
	if col, missing := table.Missing(domain.ColumnDate, domain.ColumnRegion, domain.ColumnAmount); missing {
		return nil, &domain.SchemaError{Operation: "sumByDateAndRegion", Column: col}
	}

	byRegion := make(map[string][]domain.TransactionRecord)
	for _, r := range table.Records() {
		byRegion[r.Region] = append(byRegion[r.Region], r)
	}

	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	var out []RegionSeries
	for _, region := range regions {
		points := sumByDate(byRegion[region])
		if len(points) == 0 {
			continue
		}
		out = append(out, RegionSeries{Region: region, Points: points})
	}
	return out, nil
}

func sumByDate(rows []domain.TransactionRecord) []DatePoint {
	index := make(map[time.Time]int)
	var points []DatePoint
	for _, r := range rows {
		if !r.HasDate {
			continue
		}
		key := r.Date.UTC()
		pos, ok := index[key]
		if !ok {
			pos = len(points)
			index[key] = pos
			points = append(points, DatePoint{Date: key, Sum: decimal.Zero})
		}
		points[pos].Sum = points[pos].Sum.Add(r.Amount)
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

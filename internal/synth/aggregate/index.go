package aggregate

import (
	"slices"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// MonthlyTotals counts every event per bucket, the anomalous week included.
func MonthlyTotals(events []detection.AnnotatedEvent) map[detection.BucketKey]int {
	totals := make(map[detection.BucketKey]int)
	for i := range events {
		totals[events[i].Key()]++
	}
	return totals
}

// Join inner-joins monthly totals with bucket moments. A bucket missing
// from either side is dropped. Rows come back in BucketKey order.
//
// Totals include the anomalous week while the moments do not, so a bucket
// seen only in that week never reaches the result.
func Join(totals map[detection.BucketKey]int, moments map[detection.BucketKey]detection.BucketMoments) []detection.StatsRow {
	rows := make([]detection.StatsRow, 0, min(len(totals), len(moments)))
	for key, total := range totals {
		m, ok := moments[key]
		if !ok {
			continue
		}
		rows = append(rows, detection.StatsRow{
			Key:          key,
			Mean:         m.Mean,
			Std:          m.Std,
			MonthlyCount: total,
		})
	}
	slices.SortFunc(rows, func(a, b detection.StatsRow) int {
		return a.Key.Compare(b.Key)
	})
	return rows
}

// BuildIndex runs the whole aggregation for one history set.
func BuildIndex(events []detection.AnnotatedEvent, anomalousWeek int) []detection.StatsRow {
	moments := Reduce(WeeklyCounts(events, anomalousWeek))
	return Join(MonthlyTotals(events), moments)
}

// Package aggregate turns annotated detections into per-bucket statistics.
//
// WeeklyCounts and Reduce estimate the mean and sample standard deviation
// of per-week occurrence counts, leaving out one anomalous week.
// MonthlyTotals and Join attach whole-period totals and keep only buckets
// known to both sides.
package aggregate

import (
	"gonum.org/v1/gonum/stat"

	"github.com/HerbHall/hakagen/pkg/detection"
)

// WeeklyCounts groups events by (ISO week, bucket) and counts them. Events
// in anomalousWeek are skipped.
func WeeklyCounts(events []detection.AnnotatedEvent, anomalousWeek int) map[detection.WeekBucket]int {
	counts := make(map[detection.WeekBucket]int)
	for i := range events {
		if events[i].ISOWeek == anomalousWeek {
			continue
		}
		counts[detection.WeekBucket{ISOWeek: events[i].ISOWeek, Bucket: events[i].Key()}]++
	}
	return counts
}

// Reduce collects the per-week counts of each bucket and returns their mean
// and sample standard deviation. The deviation is left undefined for
// buckets seen in a single week.
func Reduce(weekly map[detection.WeekBucket]int) map[detection.BucketKey]detection.BucketMoments {
	perBucket := make(map[detection.BucketKey][]float64)
	for wb, n := range weekly {
		perBucket[wb.Bucket] = append(perBucket[wb.Bucket], float64(n))
	}

	out := make(map[detection.BucketKey]detection.BucketMoments, len(perBucket))
	for key, counts := range perBucket {
		out[key] = moments(counts)
	}
	return out
}

func moments(counts []float64) detection.BucketMoments {
	if len(counts) < 2 {
		return detection.BucketMoments{Mean: stat.Mean(counts, nil), Weeks: len(counts)}
	}
	mean, std := stat.MeanStdDev(counts, nil)
	return detection.BucketMoments{
		Mean:  mean,
		Std:   detection.DefinedStdDev(std),
		Weeks: len(counts),
	}
}

package synth

import "github.com/prometheus/client_golang/prometheus"

// Prometheus run metrics.
var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hakagen_runs_total",
			Help: "Synthesis runs by outcome.",
		},
		[]string{"outcome"},
	)
	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hakagen_run_duration_seconds",
			Help:    "Wall time of a synthesis run.",
			Buckets: prometheus.DefBuckets,
		},
	)
	lastRunEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hakagen_last_run_events",
			Help: "Synthetic events produced by the last successful run.",
		},
	)
	statsBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hakagen_stats_buckets",
			Help: "Buckets in the statistics table of the last run.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotal, runDuration, lastRunEvents, statsBuckets)
}

// outcome classifies an error for the runs counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case isValidation(err):
		return "invalid"
	case isIntegrity(err):
		return "integrity"
	}
	return "error"
}

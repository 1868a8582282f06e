// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	QueriesServed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slotfinder_queries_total",
		Help: "Availability queries served, by query kind",
	}, []string{"query"})

	FetchRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slotfinder_schedule_fetch_runs_total",
		Help: "Schedule fetch attempts against the remote source",
	})
	FetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slotfinder_schedule_fetch_errors_total",
		Help: "Schedule fetch attempts that failed after retries",
	})
	FetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slotfinder_schedule_fetch_duration_seconds",
		Help:    "Schedule fetch duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	ScheduleDays = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "slotfinder_schedule_days",
		Help: "Days in the currently served schedule snapshot",
	})
)

func init() {
	prometheus.MustRegister(QueriesServed, FetchRuns, FetchErrors, FetchDuration, ScheduleDays)
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(start time.Time, err error) {
	FetchRuns.Inc()
	FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		FetchErrors.Inc()
	}
}

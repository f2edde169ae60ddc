// Package metrics holds the Prometheus collectors for refresh cycles and upstream fetches.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cycle statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Fetch kinds.
const (
	KindHeadlines = "headlines"
	KindKeyword   = "keyword"
)

// Metrics groups the snapshot collectors.
//
// Collectors:
//   - snapshot_cycles_total: refresh cycles by status (success, failure, skipped)
//   - snapshot_cycle_duration_seconds: duration of completed cycles
//   - snapshot_last_publish_timestamp: unix time of the last published snapshot
//   - snapshot_articles: article counts in the current snapshot by section (latest, related)
//   - snapshot_fetches_total: upstream fetches by kind and result
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	CyclesTotal          *prometheus.CounterVec
	CycleDurationSeconds prometheus.Histogram
	LastPublishTimestamp prometheus.Gauge
	Articles             *prometheus.GaugeVec
	FetchesTotal         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_cycles_total",
			Help: "Total number of refresh cycles by status",
		}, []string{"status"}),

		CycleDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "snapshot_cycle_duration_seconds",
			Help:    "Duration of refresh cycles in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		LastPublishTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: "snapshot_last_publish_timestamp",
			Help: "Unix timestamp of the last published snapshot",
		}),

		Articles: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "snapshot_articles",
			Help: "Number of articles in the current snapshot by section",
		}, []string{"section"}),

		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "snapshot_fetches_total",
			Help: "Total number of upstream fetches by kind and result",
		}, []string{"kind", "result"}),
	}
}

// RecordCycle counts a finished cycle and observes its duration.
// Skipped cycles are counted but not observed.
func (m *Metrics) RecordCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	if status != StatusSkipped {
		m.CycleDurationSeconds.Observe(d.Seconds())
	}
}

// RecordPublish sets the publish timestamp and the snapshot article gauges.
func (m *Metrics) RecordPublish(at time.Time, latest, related int) {
	if m == nil {
		return
	}
	m.LastPublishTimestamp.Set(float64(at.Unix()))
	m.Articles.WithLabelValues("latest").Set(float64(latest))
	m.Articles.WithLabelValues("related").Set(float64(related))
}

// RecordFetch counts one upstream fetch.
func (m *Metrics) RecordFetch(kind string, err error) {
	if m == nil {
		return
	}
	result := StatusSuccess
	if err != nil {
		result = StatusFailure
	}
	m.FetchesTotal.WithLabelValues(kind, result).Inc()
}

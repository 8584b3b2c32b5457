// Package prommetrics provides a Prometheus implementation of computecache.Metrics.
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	computecache "github.com/karupanerura/compute-cache"
)

// Default histogram buckets for eviction pass durations (in seconds).
var defaultBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

// Metrics implements computecache.Metrics using Prometheus.
type Metrics struct {
	lookupsTotal      *prometheus.CounterVec
	submissionsFailed prometheus.Counter
	evictedTotal      prometheus.Counter
	passDuration      prometheus.Histogram
	entries           prometheus.Gauge

	hits   prometheus.Counter
	misses prometheus.Counter
}

var _ computecache.Metrics = (*Metrics)(nil)

// New creates the metrics of the cache called name and registers them on reg.
// The name is attached to every metric as the "cache" constant label, so several caches can share reg.
func New(reg prometheus.Registerer, name string) *Metrics {
	labels := prometheus.Labels{"cache": name}
	m := &Metrics{
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "computecache_lookups_total",
			Help:        "Total number of Get calls by result",
			ConstLabels: labels,
		}, []string{"result"}),

		submissionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "computecache_submission_failures_total",
			Help:        "Total number of computations rejected by the executor",
			ConstLabels: labels,
		}),

		evictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "computecache_evicted_entries_total",
			Help:        "Total number of entries removed by eviction passes",
			ConstLabels: labels,
		}),

		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "computecache_eviction_pass_duration_seconds",
			Help:        "Eviction pass duration in seconds",
			Buckets:     defaultBuckets,
			ConstLabels: labels,
		}),

		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "computecache_entries",
			Help:        "Number of cached keys, including pending computations",
			ConstLabels: labels,
		}),
	}
	m.hits = m.lookupsTotal.WithLabelValues("hit")
	m.misses = m.lookupsTotal.WithLabelValues("miss")

	reg.MustRegister(
		m.lookupsTotal,
		m.submissionsFailed,
		m.evictedTotal,
		m.passDuration,
		m.entries,
	)

	return m
}

func (m *Metrics) Hit() {
	m.hits.Inc()
}

func (m *Metrics) Miss() {
	m.misses.Inc()
}

func (m *Metrics) SubmissionFailed() {
	m.submissionsFailed.Inc()
}

// EvictionPass counts the removed entries and observes the pass duration.
// The number of passes is the sample count of the duration histogram.
func (m *Metrics) EvictionPass(removed int, elapsed time.Duration) {
	m.evictedTotal.Add(float64(removed))
	m.passDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Entries(n int) {
	m.entries.Set(float64(n))
}

package enrich

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records enrichment activity. A nil *Metrics is a no-op.
type Metrics struct {
	lookups       *prometheus.CounterVec
	fetchFailures prometheus.Counter
	fetchDuration prometheus.Histogram
}

// NewMetrics registers enrichment metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorecard_enrich_lookups_total",
				Help: "Enrichment lookups by result source (cache, fetch, default).",
			},
			[]string{"source"},
		),
		fetchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "scorecard_enrich_fetch_failures_total",
			Help: "External enrichment fetches that failed and fell back to defaults.",
		}),
		fetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scorecard_enrich_fetch_duration_seconds",
			Help:    "Duration of external enrichment fetches.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeLookup(src Source) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(src)).Inc()
}

func (m *Metrics) observeFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
	if err != nil {
		m.fetchFailures.Inc()
	}
}

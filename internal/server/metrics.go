package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks layup job activity for the /metrics endpoint.
type Metrics struct {
	jobsStarted  prometheus.Counter
	jobsFinished *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewMetrics registers the layup job metrics on the given registerer.
// Passing nil uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		jobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "layup_jobs_started_total",
			Help: "Number of layup optimization jobs started.",
		}),
		jobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "layup_jobs_finished_total",
			Help: "Number of layup optimization jobs finished, by terminal status.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "layup_run_duration_seconds",
			Help:    "Wall-clock duration of layup optimization runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.jobsStarted.Inc()
}

func (m *Metrics) jobFinished(status string, seconds float64) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

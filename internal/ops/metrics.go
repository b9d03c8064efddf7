package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts and times operator runs.
type Metrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the operator metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics
// handler, or a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelref_op_runs_total",
			Help: "Total number of operator runs",
		}, []string{"op"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelref_op_errors_total",
			Help: "Total number of failed operator runs by error kind",
		}, []string{"op", "kind"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kernelref_op_duration_seconds",
			Help:    "Time spent computing operator outputs",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *Metrics) observe(op string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(seconds)
	if err != nil {
		m.errors.WithLabelValues(op, Kind(err)).Inc()
	}
}

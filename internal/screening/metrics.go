package screening

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"txguard/internal/compliance/models"
)

// Metrics provides observability for the screening fan-out.
type Metrics struct {
	// Per-check latency by check and outcome
	CheckLatency *prometheus.HistogramVec

	// Whole fan-out latency
	ProcessLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "txguard_screening_check_duration_seconds",
			Help:    "Duration of individual screening checks by check and outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"check", "outcome"}),
		ProcessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "txguard_screening_process_duration_seconds",
			Help:    "Duration of the full screening fan-out and join",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

// ObserveCheck records one check's latency.
func (m *Metrics) ObserveCheck(check models.CheckName, outcome string, d time.Duration) {
	if m != nil {
		m.CheckLatency.WithLabelValues(string(check), outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveProcess(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}

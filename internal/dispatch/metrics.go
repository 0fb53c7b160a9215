package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for alert dispatch.
type Metrics struct {
	Attempts   *prometheus.CounterVec
	Results    *prometheus.CounterVec
	QueueDepth prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_dispatch_attempts_total",
			Help: "Sink delivery attempts by sink and result",
		}, []string{"sink", "result"}),
		Results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_dispatch_results_total",
			Help: "Dispatch outcomes: delivered, failed, skipped, queue_full",
		}, []string{"result"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "txguard_dispatch_queue_depth",
			Help: "Notifications waiting for a dispatch worker",
		}),
	}
}

func (m *Metrics) IncAttempt(sink, result string) {
	if m != nil {
		m.Attempts.WithLabelValues(sink, result).Inc()
	}
}

func (m *Metrics) IncResult(result string) {
	if m != nil {
		m.Results.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	// Verdicts by status and reason
	Verdicts *prometheus.CounterVec

	// Time from aggregation start to decision
	DecideLatency prometheus.Histogram

	// Rejected state transitions
	IllegalTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all decision module metrics registered.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_decision_verdicts_total",
			Help: "Total verdicts by status and reason",
		}, []string{"status", "reason"}),

		DecideLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "txguard_decision_duration_seconds",
			Help:    "Duration from aggregation start to verdict, including screening",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		IllegalTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_decision_illegal_transitions_total",
			Help: "Aggregation state transitions rejected by the state machine",
		}, []string{"from", "to"}),
	}
}

// IncrementVerdict records one verdict under each of its reasons.
func (m *Metrics) IncrementVerdict(status string, reasons []string) {
	if m == nil {
		return
	}
	for _, r := range reasons {
		m.Verdicts.WithLabelValues(status, r).Inc()
	}
}

func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementIllegalTransition(from, to string) {
	if m != nil {
		m.IllegalTransitions.WithLabelValues(from, to).Inc()
	}
}

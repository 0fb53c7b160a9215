package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit ledger.
type Metrics struct {
	AppendLatency     prometheus.Histogram
	AppendFailures    prometheus.Counter
	HeadSeq           prometheus.Gauge
	IntegrityFailures prometheus.Counter
	Checkpoints       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AppendLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "txguard_ledger_append_duration_seconds",
			Help:    "Duration of durable ledger appends",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 2},
		}),
		AppendFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "txguard_ledger_append_failures_total",
			Help: "Ledger appends that failed; each failed a submission closed",
		}),
		HeadSeq: f.NewGauge(prometheus.GaugeOpts{
			Name: "txguard_ledger_head_seq",
			Help: "Sequence number of the last committed ledger record",
		}),
		IntegrityFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "txguard_ledger_integrity_failures_total",
			Help: "Verification runs that found a broken hash chain",
		}),
		Checkpoints: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_ledger_checkpoints_total",
			Help: "Anchor checkpoints by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveAppend(d time.Duration, seq uint64) {
	if m != nil {
		m.AppendLatency.Observe(d.Seconds())
		m.HeadSeq.Set(float64(seq))
	}
}

func (m *Metrics) IncAppendFailure() {
	if m != nil {
		m.AppendFailures.Inc()
	}
}

func (m *Metrics) SetHead(seq uint64) {
	if m != nil {
		m.HeadSeq.Set(float64(seq))
	}
}

func (m *Metrics) IncIntegrityFailure() {
	if m != nil {
		m.IntegrityFailures.Inc()
	}
}

func (m *Metrics) IncCheckpoint(result string) {
	if m != nil {
		m.Checkpoints.WithLabelValues(result).Inc()
	}
}

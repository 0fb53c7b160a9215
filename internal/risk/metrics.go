package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"txguard/internal/compliance/models"
)

// Metrics provides observability for risk scoring.
type Metrics struct {
	Scores   *prometheus.HistogramVec
	Degraded *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "txguard_risk_score",
			Help:    "Distribution of risk scores by level",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		}, []string{"level"}),
		Degraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_risk_degraded_total",
			Help: "Scores that used a fail-toward-risk fallback, by factor",
		}, []string{"factor"}),
	}
}

func (m *Metrics) ObserveScore(rs models.RiskScore) {
	if m != nil {
		m.Scores.WithLabelValues(string(rs.Level)).Observe(rs.Score)
	}
}

func (m *Metrics) IncDegraded(factor string) {
	if m != nil {
		m.Degraded.WithLabelValues(factor).Inc()
	}
}

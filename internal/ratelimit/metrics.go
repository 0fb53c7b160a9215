package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "txguard_ratelimit_decisions_total",
			Help: "Rate limit decisions: allowed, rejected, error",
		}, []string{"result"}),
	}
}

func (m *Metrics) Inc(result string) {
	if m != nil {
		m.Decisions.WithLabelValues(result).Inc()
	}
}

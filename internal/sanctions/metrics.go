package sanctions

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for sanctions list freshness.
type Metrics struct {
	ListVersion     prometheus.Gauge
	ListEntries     prometheus.Gauge
	RefreshFailures prometheus.Counter
	Unavailable     prometheus.Counter
}

// NewMetrics creates sanctions metrics registered with the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ListVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "txguard_sanctions_list_version",
			Help: "Version of the active sanctions snapshot",
		}),
		ListEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "txguard_sanctions_list_entries",
			Help: "Number of entities in the active sanctions snapshot",
		}),
		RefreshFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "txguard_sanctions_refresh_failures_total",
			Help: "Sanctions list refreshes that exhausted their retries",
		}),
		Unavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "txguard_sanctions_unavailable_total",
			Help: "Screenings answered with ERROR because no fresh list was available",
		}),
	}
}

func (m *Metrics) SetSnapshot(s *Snapshot) {
	if m != nil && s != nil {
		m.ListVersion.Set(float64(s.Version))
		m.ListEntries.Set(float64(s.Len()))
	}
}

func (m *Metrics) IncRefreshFailure() {
	if m != nil {
		m.RefreshFailures.Inc()
	}
}

func (m *Metrics) IncUnavailable() {
	if m != nil {
		m.Unavailable.Inc()
	}
}

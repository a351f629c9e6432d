package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts auth flow outcomes per provider. A nil *Metrics is valid
// and records nothing, so tests can skip registration.
type Metrics struct {
	flowTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		flowTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_flow_total",
			Help: "Authentication flow completions by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}
}

func (m *Metrics) RecordFlow(provider, outcome string) {
	if m == nil {
		return
	}
	m.flowTotal.WithLabelValues(provider, outcome).Inc()
}

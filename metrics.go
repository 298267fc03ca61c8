package netonl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	labelInterface = "interface"
	labelState     = "state"
)

// metrics bundles the per-Controller collectors. A fresh set is created per
// Controller, registered against cfg.MetricsRegistry (or the default
// registerer), so watching more than one interface in a process doesn't
// collide on metric identity.
type metrics struct {
	stateTransitions *prometheus.CounterVec
	currentState     *prometheus.GaugeVec
	skewMicros       *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		stateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netonl_state_transitions_total",
				Help: "Count of link state transitions by interface and resulting state.",
			},
			[]string{labelInterface, labelState},
		),
		currentState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netonl_current_state",
				Help: "Current link state ordinal (0=Error,1=Unknown,2=Down,3=Up) by interface.",
			},
			[]string{labelInterface},
		),
		skewMicros: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netonl_rxtx_skew_microseconds",
				Help: "Most recently observed |last_tx_us - last_rx_us| by interface.",
			},
			[]string{labelInterface},
		),
	}
}

func (m *metrics) observeTransition(iface string, st State) {
	m.stateTransitions.WithLabelValues(iface, st.String()).Inc()
	m.currentState.WithLabelValues(iface).Set(float64(st))
}

func (m *metrics) observeSkew(iface string, skewUS uint64) {
	m.skewMicros.WithLabelValues(iface).Set(float64(skewUS))
}

func registererFrom(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return prometheus.DefaultRegisterer
	}
	return reg
}

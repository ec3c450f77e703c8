package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts pool operations. One Metrics value may be shared by several
// pools registered against the same registerer.
type Metrics struct {
	Mints              prometheus.Counter
	Burns              prometheus.Counter
	Collects           prometheus.Counter
	Swaps              prometheus.Counter
	TicksCrossed       prometheus.Counter
	SettlementFailures prometheus.Counter
}

// NewMetrics registers the pool counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "mints_total",
			Help:      "Number of successful mint operations.",
		}),
		Burns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "burns_total",
			Help:      "Number of successful burn operations.",
		}),
		Collects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "collects_total",
			Help:      "Number of successful collect operations.",
		}),
		Swaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "swaps_total",
			Help:      "Number of successful swap operations.",
		}),
		TicksCrossed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "ticks_crossed_total",
			Help:      "Number of initialized tick boundaries crossed by swaps.",
		}),
		SettlementFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "clpool",
			Name:      "settlement_failures_total",
			Help:      "Number of operations aborted by settlement verification.",
		}),
	}
}

// The inc helpers tolerate a nil receiver so pools without metrics skip
// counting without branching at every call site.

func (m *Metrics) incMints() {
	if m != nil {
		m.Mints.Inc()
	}
}

func (m *Metrics) incBurns() {
	if m != nil {
		m.Burns.Inc()
	}
}

func (m *Metrics) incCollects() {
	if m != nil {
		m.Collects.Inc()
	}
}

func (m *Metrics) incSwaps() {
	if m != nil {
		m.Swaps.Inc()
	}
}

func (m *Metrics) addTicksCrossed(n int) {
	if m != nil && n > 0 {
		m.TicksCrossed.Add(float64(n))
	}
}

func (m *Metrics) incSettlementFailures() {
	if m != nil {
		m.SettlementFailures.Inc()
	}
}

package pos

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Metrics counts ledger activity. A nil *Metrics records nothing.
type Metrics struct {
	Reservations *prometheus.CounterVec
	Checkouts    prometheus.Counter
	UnitsSold    prometheus.Counter
	Revenue      prometheus.Counter
	Resets       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reservations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pos_cart_reservations_total",
				Help: "Cart reservation and quantity edits by outcome",
			},
			[]string{"op", "outcome"},
		),
		Checkouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_checkouts_total",
			Help: "Completed checkouts",
		}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_units_sold_total",
			Help: "Units finalised by checkout",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_revenue_total",
			Help: "Checkout totals in the smallest currency unit",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_cart_resets_total",
			Help: "Carts reset with stock returned",
		}),
	}

	reg.MustRegister(m.Reservations, m.Checkouts, m.UnitsSold, m.Revenue, m.Resets)
	return m
}

func (m *Metrics) reservation(op, outcome string) {
	if m == nil {
		return
	}
	m.Reservations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) checkout(units, total int64) {
	if m == nil {
		return
	}
	m.Checkouts.Inc()
	m.UnitsSold.Add(float64(units))
	m.Revenue.Add(float64(total))
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

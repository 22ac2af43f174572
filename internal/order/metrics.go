package order

import "github.com/prometheus/client_golang/prometheus"

// Metrics are domain counters; a nil *Metrics records nothing.
type Metrics struct {
	Placed   prometheus.Counter
	Rejected *prometheus.CounterVec
	Status   *prometheus.CounterVec
	Deleted  prometheus.Counter
	Open     prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Placed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders accepted",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Order placements rejected, by reason",
		}, []string{"reason"}),
		Status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_updates_total",
			Help:      "Status updates applied, by new status",
		}, []string{"status"}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_deleted_total",
			Help:      "Delivered orders deleted",
		}),
		Open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_stored",
			Help:      "Orders currently held",
		}),
	}

	reg.MustRegister(m.Placed, m.Rejected, m.Status, m.Deleted, m.Open)
	return m
}

func (m *Metrics) placed(stored int) {
	if m == nil {
		return
	}
	m.Placed.Inc()
	m.Open.Set(float64(stored))
}

func (m *Metrics) rejected(reason string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) statusChanged(s Status) {
	if m == nil {
		return
	}
	m.Status.WithLabelValues(string(s)).Inc()
}

func (m *Metrics) deleted(stored int) {
	if m == nil {
		return
	}
	m.Deleted.Inc()
	m.Open.Set(float64(stored))
}

func (m *Metrics) loaded(stored int) {
	if m == nil {
		return
	}
	m.Open.Set(float64(stored))
}

// Package metrics defines the Prometheus metrics for the notes list.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tooknotes"

// Metrics holds the counters and gauges the controller and surfaces update.
// Create it once per process with New and register it with Register.
type Metrics struct {
	// EventsTotal counts processed controller events.
	// Labels: event (store_updated, toggle_order_section, order, delete_note, restore_note)
	EventsTotal *prometheus.CounterVec

	// SortsTotal counts note list sorts.
	SortsTotal prometheus.Counter

	// StoreErrorsTotal counts store failures absorbed by the controller.
	// Labels: op (delete, insert)
	StoreErrorsTotal *prometheus.CounterVec

	// StreamClients tracks connected live-state stream clients.
	StreamClients prometheus.Gauge
}

// New creates an unregistered Metrics.
func New() *Metrics {
	return &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "controller",
				Name:      "events_total",
				Help:      "Processed notes list events by type",
			},
			[]string{"event"},
		),
		SortsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "controller",
				Name:      "sorts_total",
				Help:      "Number of note list sorts",
			},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "controller",
				Name:      "store_errors_total",
				Help:      "Store failures seen by the notes list controller",
			},
			[]string{"op"},
		),
		StreamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sse",
				Name:      "clients",
				Help:      "Connected live state stream clients",
			},
		),
	}
}

// Register registers every metric with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.EventsTotal, m.SortsTotal, m.StoreErrorsTotal, m.StreamClients} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

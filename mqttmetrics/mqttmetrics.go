// Package mqttmetrics exposes Prometheus counters and gauges a caller
// updates while draining the event list an engine instance returns.
// The engine never imports this package; nothing here is on the wire
// engine's call path.
package mqttmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a small bundle of counters/gauges tracking traffic across
// every connection a caller drives through the engine. Register it
// against a caller-supplied Registerer so multiple engines in one
// process can share metrics or keep separate registries per listener.
type Metrics struct {
	PacketsReceived   prometheus.Counter
	BytesReceived     prometheus.Counter
	PacketsSent       prometheus.Counter
	BytesSent         prometheus.Counter
	ActiveConnections prometheus.Gauge
	ErrorsTotal       prometheus.Counter
}

// New builds a Metrics bundle. Call Register to attach it to a
// prometheus.Registerer; New itself performs no registration so tests
// can construct a Metrics without a global side effect.
func New(namespace string) *Metrics {
	return &Metrics{
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total number of MQTT packets received across all connections.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total number of wire bytes received across all connections.",
		}),
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Total number of MQTT packets sent across all connections.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total number of wire bytes sent across all connections.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections the caller is currently driving through an engine instance.",
		}),
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of NotifyError events returned by any engine instance.",
		}),
	}
}

// Register attaches every collector in m to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.PacketsReceived,
		m.BytesReceived,
		m.PacketsSent,
		m.BytesSent,
		m.ActiveConnections,
		m.ErrorsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObservePacketReceived records one received packet of the given size.
func (m *Metrics) ObservePacketReceived(bytes int) {
	m.PacketsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// ObservePacketSent records one sent packet of the given size.
func (m *Metrics) ObservePacketSent(bytes int) {
	m.PacketsSent.Inc()
	m.BytesSent.Add(float64(bytes))
}

// ObserveError increments the error counter.
func (m *Metrics) ObserveError() {
	m.ErrorsTotal.Inc()
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	m.ActiveConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() {
	m.ActiveConnections.Dec()
}

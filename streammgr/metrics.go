package streammgr

import "github.com/prometheus/client_golang/prometheus"

// PrometheusMonitor is a Monitor publishing pool occupancy as
// gauges under the given namespace. Register it with a prometheus.Registerer
// once per process.
type PrometheusMonitor struct {
	openConnections     prometheus.Gauge
	streamsOpen         prometheus.Gauge
	pendingAcquisitions prometheus.Gauge
	pendingConnReqs     prometheus.Gauge
}

// NewPrometheusMonitor creates and registers a PrometheusMonitor.
func NewPrometheusMonitor(reg prometheus.Registerer, namespace string) *PrometheusMonitor {
	m := &PrometheusMonitor{
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "open_connections",
			Help: "Connections currently held by the stream manager.",
		}),
		streamsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "streams_open",
			Help: "Streams currently bound to a connection.",
		}),
		pendingAcquisitions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_acquisitions",
			Help: "Stream acquisitions waiting for connection capacity.",
		}),
		pendingConnReqs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pending_connection_requests",
			Help: "Outstanding AcquireConnection calls.",
		}),
	}
	reg.MustRegister(m.openConnections, m.streamsOpen, m.pendingAcquisitions, m.pendingConnReqs)
	return m
}

// ObserveOccupancy implements Monitor.
func (m *PrometheusMonitor) ObserveOccupancy(occ Occupancy) {
	m.openConnections.Set(float64(occ.OpenConnections))
	m.streamsOpen.Set(float64(occ.StreamsOpen))
	m.pendingAcquisitions.Set(float64(occ.PendingAcquisitions))
	m.pendingConnReqs.Set(float64(occ.PendingConnectionReq))
}

package streammgr

import (
	"crypto/tls"
	"time"

	"github.com/mtlabs/h2pool/proxy"
	"go.uber.org/zap"
)

// ProxyStrategy is the hook set ManagerOptions.Proxy carries; the manager
// runs its TransformConnect over each bound request. See package proxy.
type ProxyStrategy = proxy.Strategy

// SocketOptions configures the TCP connections a ConnectionManager dials.
type SocketOptions struct {
	ConnectTimeout time.Duration
	KeepAlive      time.Duration
}

// TLSOptions configures the TLS handshake a ConnectionManager performs,
// including ALPN negotiation of "h2".
type TLSOptions struct {
	Config     *tls.Config
	ServerName string
}

// Monitor receives point-in-time pool occupancy observations. A nil
// ManagerOptions.Monitor discards them; PrometheusMonitor (see metrics.go)
// reports them as Prometheus gauges; cmd/h2poolctl also drives one off a
// cron schedule to log periodic snapshots.
type Monitor interface {
	ObserveOccupancy(Occupancy)
}

// Occupancy is a snapshot of the manager's internal state at one instant.
type Occupancy struct {
	OpenConnections      int
	StreamsOpen          int
	PendingAcquisitions  int
	PendingConnectionReq int
}

// noopMonitor is used when ManagerOptions.Monitor is nil.
type noopMonitor struct{}

func (noopMonitor) ObserveOccupancy(Occupancy) {}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// ConnectionManager is the required lower-level source of
	// connections. Production callers wire in an implementation backed
	// by SocketOptions/TLSOptions; tests wire in a fake.
	ConnectionManager ConnectionManager

	// AssumeMaxConcurrentStreams is used to size how many connections to
	// request when the pool runs out of capacity, before any connection
	// has reported its peer's actual SETTINGS_MAX_CONCURRENT_STREAMS.
	// Once a connection reports a real value the manager uses that
	// instead for binding decisions on that connection.
	AssumeMaxConcurrentStreams int

	// Proxy, if set, has its TransformConnect hook consulted for every
	// bound acquisition before the create-stream task is dispatched to
	// the connection's Schedule, letting it rewrite or add headers (e.g.
	// Proxy-Authorization) on the outbound request.
	Proxy *ProxyStrategy

	Monitor Monitor
	Logger  *zap.Logger
}

func (o *ManagerOptions) withDefaults() ManagerOptions {
	out := *o
	if out.AssumeMaxConcurrentStreams <= 0 {
		out.AssumeMaxConcurrentStreams = 100
	}
	if out.Monitor == nil {
		out.Monitor = noopMonitor{}
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// AcquireStreamOptions configures a single AcquireStream call.
type AcquireStreamOptions struct {
	Request *Request
}

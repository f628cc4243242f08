package streammgr

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// lifecycleState tracks whether the manager is still accepting work.
// Grounded on aws-c-http's connection-manager ready/shutting_down states,
// generalized from a ref-counted single connection to a pool of them.
type lifecycleState int

const (
	stateReady lifecycleState = iota
	stateShuttingDown
)

// Manager is a concurrent coordinator over a pool of HTTP/2 connections: it
// accepts stream-acquisition requests, binds them against connections with
// spare capacity, and asks its ConnectionManager for more connections when
// it runs out. Every mutation of shared state happens under mu; the actual
// I/O (CreateStream, AcquireConnection) always runs after mu is released,
// per the lock -> decide -> unlock -> execute discipline used throughout.
type Manager struct {
	mu    sync.Mutex
	state lifecycleState

	opts    ManagerOptions
	connMgr ConnectionManager
	logger  *zap.Logger

	connections               []*managedConnection
	pending                   []*acquisitionRequest
	pendingConnectionRequests int
	nextConnSeq               uint64
}

// NewManager creates a Manager. opts.ConnectionManager must be non-nil.
func NewManager(opts ManagerOptions) *Manager {
	resolved := opts.withDefaults()
	return &Manager{
		opts:    resolved,
		connMgr: resolved.ConnectionManager,
		logger:  resolved.Logger,
	}
}

// AcquireStream requests a stream be opened on whichever connection the
// manager selects, reporting the result to cb exactly once. A created
// stream is always reported from a task run through the chosen
// connection's Schedule, never directly from this call, even when a
// connection already has capacity. Failures for a manager that is shutting
// down or a context that has already ended are reported synchronously.
func (m *Manager) AcquireStream(ctx context.Context, opts AcquireStreamOptions, cb func(Stream, error)) {
	req := &acquisitionRequest{id: uuid.NewString(), ctx: ctx, req: opts.Request, cb: cb}

	m.mu.Lock()
	if m.state == stateShuttingDown {
		m.mu.Unlock()
		cb(nil, newError(KindManagerShuttingDown, "manager is shutting down"))
		return
	}
	m.pending = append(m.pending, req)
	w := m.buildWorkLocked()
	occ := m.occupancyLocked()
	m.mu.Unlock()

	m.opts.Monitor.ObserveOccupancy(occ)
	m.execute(w)
}

// onConnectionAcquired is the ConnectionManager callback. It may run
// concurrently with itself (TCPConnectionManager calls back from one
// goroutine per dial) and with AcquireStream calls, so it takes the same
// lock.
func (m *Manager) onConnectionAcquired(conn Connection, err error) {
	m.mu.Lock()
	m.pendingConnectionRequests--
	if err != nil {
		m.logger.Warn("connection acquire failed", zap.Error(err))
		// Demand may still exist; buildWorkLocked will ask for a
		// replacement connection if there's still an unmet queue.
		w := m.buildWorkLocked()
		m.mu.Unlock()
		m.execute(w)
		return
	}

	mc := &managedConnection{
		conn:                 conn,
		id:                   conn.ID(),
		insertionSeq:         m.nextConnSeq,
		maxConcurrentStreams: m.opts.AssumeMaxConcurrentStreams,
	}
	m.nextConnSeq++
	m.connections = append(m.connections, mc)
	w := m.buildWorkLocked()
	occ := m.occupancyLocked()
	m.mu.Unlock()

	m.opts.Monitor.ObserveOccupancy(occ)
	m.execute(w)
}

// ReportMaxConcurrentStreams lets a connection tell the manager its peer's
// real SETTINGS_MAX_CONCURRENT_STREAMS once the settings exchange
// completes, replacing the assumed value as that connection's binding
// capacity. Sizing of new connection requests keeps using
// ManagerOptions.AssumeMaxConcurrentStreams.
func (m *Manager) ReportMaxConcurrentStreams(connID string, n int) {
	m.mu.Lock()
	for _, mc := range m.connections {
		if mc.id == connID {
			mc.maxConcurrentStreams = n
			break
		}
	}
	w := m.buildWorkLocked()
	m.mu.Unlock()
	m.execute(w)
}

// ReleaseStream tells the manager a previously bound stream on connID has
// closed, freeing its reserved capacity for the next queued acquisition.
func (m *Manager) ReleaseStream(connID string) {
	m.mu.Lock()
	for _, mc := range m.connections {
		if mc.id == connID && mc.numStreamsOpen > 0 {
			mc.numStreamsOpen--
			break
		}
	}
	w := m.buildWorkLocked()
	m.mu.Unlock()
	m.execute(w)
}

// MarkGoingAway excludes a connection from future binding once it has sent
// or received GOAWAY. Existing streams on it are unaffected.
func (m *Manager) MarkGoingAway(connID string) {
	m.mu.Lock()
	for _, mc := range m.connections {
		if mc.id == connID {
			mc.goingAway = true
			break
		}
	}
	m.mu.Unlock()
}

func (m *Manager) occupancyLocked() Occupancy {
	occ := Occupancy{
		OpenConnections:      len(m.connections),
		PendingAcquisitions:  len(m.pending),
		PendingConnectionReq: m.pendingConnectionRequests,
	}
	for _, mc := range m.connections {
		occ.StreamsOpen += mc.numStreamsOpen
	}
	return occ
}

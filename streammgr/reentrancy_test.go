package streammgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// lockProbeConnMgr and lockProbeMonitor verify the manager never holds mu
// while calling into a ConnectionManager, a Connection, or a Monitor — the
// lock -> decide -> unlock -> execute discipline documented on Manager.
type lockProbeConnMgr struct {
	m *Manager
}

func (cm *lockProbeConnMgr) AcquireConnection(ctx context.Context, cb func(Connection, error)) {
	if !cm.m.mu.TryLock() {
		cb(nil, errLockHeld)
		return
	}
	cm.m.mu.Unlock()
	cb(&lockProbeConn{m: cm.m}, nil)
}

func (cm *lockProbeConnMgr) Shutdown(complete func()) { complete() }

type lockProbeConn struct {
	m *Manager
}

func (c *lockProbeConn) ID() string           { return "probe" }
func (c *lockProbeConn) Schedule(task func()) { task() }
func (c *lockProbeConn) IsGoingAway() bool    { return false }
func (c *lockProbeConn) Release()             {}

func (c *lockProbeConn) CreateStream(req *Request) (Stream, error) {
	if !c.m.mu.TryLock() {
		return nil, errLockHeld
	}
	c.m.mu.Unlock()
	return &lockProbeStream{}, nil
}

type lockProbeStream struct{}

func (s *lockProbeStream) ID() uint32           { return 1 }
func (s *lockProbeStream) ConnectionID() string { return "probe" }

type lockProbeMonitor struct {
	m                   *Manager
	lockedDuringObserve bool
}

func (pm *lockProbeMonitor) ObserveOccupancy(Occupancy) {
	if !pm.m.mu.TryLock() {
		pm.lockedDuringObserve = true
		return
	}
	pm.m.mu.Unlock()
}

var errLockHeld = newError(KindNone, "manager lock was held during a callback")

func TestManagerCallbacksNeverObserveLockHeld(t *testing.T) {
	cm := &lockProbeConnMgr{}
	mon := &lockProbeMonitor{}
	m := NewManager(ManagerOptions{ConnectionManager: cm, Monitor: mon, AssumeMaxConcurrentStreams: 10})
	cm.m = m
	mon.m = m

	var gotErr error
	m.AcquireStream(context.Background(), AcquireStreamOptions{Request: &Request{}}, func(s Stream, err error) {
		gotErr = err
	})
	require.NoError(t, gotErr)
	require.False(t, mon.lockedDuringObserve)
}

package streammgr

// Shutdown stops accepting new acquisitions, fails every one still queued,
// releases every connection the manager currently holds, and finally asks
// the underlying ConnectionManager to shut itself down. complete is called
// once all of that has happened.
//
// It marks closed first (under lock) so no more work is accepted, then
// does the actual teardown without holding the lock.
func (m *Manager) Shutdown(complete func()) {
	m.mu.Lock()
	if m.state == stateShuttingDown {
		m.mu.Unlock()
		if complete != nil {
			complete()
		}
		return
	}
	m.state = stateShuttingDown
	pending := m.pending
	m.pending = nil
	conns := m.connections
	m.connections = nil
	m.mu.Unlock()

	for _, req := range pending {
		req.fail(newError(KindManagerShuttingDown, "manager is shutting down"))
	}
	for _, mc := range conns {
		mc.conn.Release()
	}

	m.connMgr.Shutdown(func() {
		if complete != nil {
			complete()
		}
	})
}

package streammgr

import (
	"context"
	"strings"
)

// boundAcquisition pairs a pending acquisition with the connection the
// transaction builder reserved capacity for it on.
type boundAcquisition struct {
	req  *acquisitionRequest
	conn *managedConnection
}

// workPacket is everything buildWorkLocked decided needs to happen outside
// the manager's lock: streams to actually create, and additional
// connection-acquire calls to issue. Splitting "decide" (locked) from "do"
// (unlocked) keeps the rule this package never breaks: never call into a
// Connection or a ConnectionManager while holding the manager's mutex.
type workPacket struct {
	binds              []boundAcquisition
	failed             []*acquisitionRequest
	connectionRequests int
}

// buildWorkLocked drains m.pending against the connections currently
// available, then figures out how many fresh connections are needed to
// satisfy whatever's left. Callers must hold m.mu.
func (m *Manager) buildWorkLocked() *workPacket {
	w := &workPacket{}

	kept := m.pending[:0]
	for _, req := range m.pending {
		if req.cancelled() {
			w.failed = append(w.failed, req)
			continue
		}
		kept = append(kept, req)
	}
	m.pending = kept

	for len(m.pending) > 0 {
		mc := selectConnection(m.connections)
		if mc == nil {
			break
		}
		req := m.pending[0]
		m.pending = m.pending[1:]
		mc.numStreamsOpen++
		w.binds = append(w.binds, boundAcquisition{req: req, conn: mc})
	}

	if remaining := len(m.pending); remaining > 0 {
		perConn := m.opts.AssumeMaxConcurrentStreams
		needed := (remaining + perConn - 1) / perConn
		if extra := needed - m.pendingConnectionRequests; extra > 0 {
			m.pendingConnectionRequests += extra
			w.connectionRequests = extra
		}
	}

	return w
}

// execute runs the decisions in w outside the manager's lock: it opens
// streams on the connections buildWorkLocked reserved them against, fails
// cancelled acquisitions, and issues new connection-acquire calls.
//
// Each bind's create-stream work is handed to the connection's own
// Schedule, never called directly: this is what keeps a caller's
// AcquireStream callback off the acquiring goroutine's own stack, even
// when a connection already has spare capacity and binding happens on
// the spot.
func (m *Manager) execute(w *workPacket) {
	for _, f := range w.failed {
		f.fail(newError(KindAcquisitionCancelled, "caller's context ended before a connection was available"))
	}

	for _, b := range w.binds {
		b := b
		req := m.applyProxy(b.req.req)
		b.conn.conn.Schedule(func() {
			stream, err := b.conn.conn.CreateStream(req)
			if err != nil {
				m.releaseReservation(b.conn)
				b.req.fail(newError(KindStreamCreateFailed, "connection %s: %v", b.conn.id, err))
				return
			}
			b.req.cb(stream, nil)
		})
	}

	for i := 0; i < w.connectionRequests; i++ {
		m.connMgr.AcquireConnection(context.Background(), m.onConnectionAcquired)
	}
}

// applyProxy runs req through the configured proxy strategy's
// TransformConnect hook before the create-stream task is dispatched, so a
// strategy can add or rewrite headers (e.g. Proxy-Authorization) on the
// outbound request. req is left untouched; a transformed copy is
// returned. With no Proxy configured, req is returned as-is.
func (m *Manager) applyProxy(req *Request) *Request {
	if m.opts.Proxy == nil || m.opts.Proxy.TransformConnect == nil {
		return req
	}

	target := ""
	headers := make(map[string]string, len(req.Headers))
	for _, h := range req.Headers {
		headers[h.Name] = h.Value
		if h.Name == ":authority" || strings.EqualFold(h.Name, "host") {
			target = h.Value
		}
	}

	transformed := m.opts.Proxy.TransformConnect(target, headers)

	out := &Request{Method: req.Method, Path: req.Path, Body: req.Body}
	out.Headers = make([]HeaderField, 0, len(transformed))
	for name, value := range transformed {
		out.Headers = append(out.Headers, HeaderField{Name: name, Value: value})
	}
	return out
}

// releaseReservation undoes the optimistic numStreamsOpen++ a connection
// received in buildWorkLocked when the stream it was reserved for never
// actually got created.
func (m *Manager) releaseReservation(mc *managedConnection) {
	m.mu.Lock()
	mc.numStreamsOpen--
	m.mu.Unlock()
}

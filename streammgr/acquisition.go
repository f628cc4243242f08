package streammgr

import "context"

// acquisitionRequest is one caller's outstanding AcquireStream call,
// waiting in the manager's FIFO queue for a connection with spare
// capacity: a small record carrying exactly what's needed to report a
// result later, kept in a queue rather than a channel so the manager can
// inspect and reorder it under its own lock.
type acquisitionRequest struct {
	id  string
	ctx context.Context
	req *Request
	cb  func(Stream, error)
}

func (a *acquisitionRequest) fail(err error) {
	a.cb(nil, err)
}

func (a *acquisitionRequest) cancelled() bool {
	select {
	case <-a.ctx.Done():
		return true
	default:
		return false
	}
}

package streammgr

import "github.com/pkg/errors"

// Kind classifies a stream manager failure.
type Kind int

const (
	KindNone Kind = iota
	// KindManagerShuttingDown is returned to any acquisition submitted
	// after Shutdown has been called.
	KindManagerShuttingDown
	// KindConnectionAcquireFailed means the underlying ConnectionManager
	// could not produce a connection for a pending acquisition.
	KindConnectionAcquireFailed
	// KindStreamCreateFailed means a connection accepted the reservation
	// but failed to open the stream itself.
	KindStreamCreateFailed
	// KindAcquisitionCancelled means the caller's context was done before
	// a connection became available.
	KindAcquisitionCancelled
)

func (k Kind) String() string {
	switch k {
	case KindManagerShuttingDown:
		return "manager_shutting_down"
	case KindConnectionAcquireFailed:
		return "connection_acquire_failed"
	case KindStreamCreateFailed:
		return "stream_create_failed"
	case KindAcquisitionCancelled:
		return "acquisition_cancelled"
	default:
		return "none"
	}
}

// Error is the error type returned to AcquireStream callbacks.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

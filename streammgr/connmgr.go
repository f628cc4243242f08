package streammgr

import "context"

// Request describes a single HTTP/2 stream a caller wants opened on
// whatever connection the manager selects for it.
type Request struct {
	Method  string
	Path    string
	Headers []HeaderField
	Body    []byte
}

// HeaderField is a wire-agnostic name/value pair; callers compress it onto
// the wire themselves (see the hpack package) once a Stream is returned.
type HeaderField struct {
	Name  string
	Value string
}

// Stream is a single HTTP/2 stream opened on a managed connection.
type Stream interface {
	ID() uint32
	ConnectionID() string
}

// Connection is the manager's view of one HTTP/2 connection. A single
// goroutine owns the underlying transport and every mutating call is
// funneled through Schedule so that only that goroutine ever touches the
// transport directly.
type Connection interface {
	// ID uniquely identifies the connection for logging and metrics.
	ID() string
	// Schedule queues task to run on the connection's owning goroutine.
	// Callers outside that goroutine must never call into the connection
	// directly; everything goes through Schedule.
	Schedule(task func())
	// CreateStream opens a new stream for req. The manager only ever
	// calls this from within a task handed to Schedule, so an
	// implementation may assume it already runs on the connection's own
	// goroutine and needs no further internal dispatch.
	CreateStream(req *Request) (Stream, error)
	// IsGoingAway reports whether the connection has received or sent
	// GOAWAY and must not be given further streams.
	IsGoingAway() bool
	// Release returns the connection to whatever pool or transport owns
	// its lifecycle once the manager is done with it.
	Release()
}

// ConnectionManager is the narrow interface the stream manager depends on
// to obtain and give up connections. A real implementation dials new TCP/TLS
// connections (see SocketOptions/TLSOptions in options.go) and performs the
// HTTP/2 connection preface and SETTINGS exchange before handing back a
// Connection whose num_streams_open is zero.
type ConnectionManager interface {
	// AcquireConnection asynchronously produces a Connection (or an
	// error) via cb. Implementations must always call cb exactly once.
	AcquireConnection(ctx context.Context, cb func(Connection, error))
	// Shutdown releases any connections the ConnectionManager itself
	// owns outright (as opposed to ones already handed out), then calls
	// complete.
	Shutdown(complete func())
}

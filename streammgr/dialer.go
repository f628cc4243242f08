package streammgr

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mtlabs/h2pool/hpack"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// connTaskQueueSize bounds how many Schedule calls a connection's owning
// goroutine will buffer before Schedule blocks the caller.
const connTaskQueueSize = 64

// http2Preface is the fixed connection preface every HTTP/2 connection
// begins with (RFC 9113 §3.4), sent immediately after TLS/ALPN negotiates
// "h2", before any frame.
var http2Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// frameHeaderLen is the size of an HTTP/2 frame header (RFC 9113 §4.1).
const frameHeaderLen = 9

const (
	frameTypeHeaders  = 0x1
	frameTypeSettings = 0x4

	flagEndStream  = 0x1
	flagEndHeaders = 0x4
)

// TCPConnectionManager dials TLS connections negotiating the "h2" ALPN
// protocol and performs the HTTP/2 connection preface, handing back
// Connections that can open streams by writing HEADERS frames directly.
// It does not implement flow control, SETTINGS negotiation beyond sending
// an empty SETTINGS frame, or response parsing: those live above the
// connection-acquisition boundary this package owns, in a transport layer
// left to the caller.
type TCPConnectionManager struct {
	Addr          string
	SocketOptions SocketOptions
	TLSOptions    TLSOptions
	Logger        *zap.Logger

	// dialLimit bounds how many dials run concurrently, so a burst of
	// connection-acquire requests doesn't open dozens of sockets to the
	// same target at once.
	dialLimit *semaphore.Weighted
}

// DefaultMaxConcurrentDials is used when NewTCPConnectionManager is not
// given an explicit limit.
const DefaultMaxConcurrentDials = 8

// NewTCPConnectionManager creates a ConnectionManager dialing addr, with at
// most DefaultMaxConcurrentDials dials in flight at once.
func NewTCPConnectionManager(addr string, sock SocketOptions, tlsOpts TLSOptions, logger *zap.Logger) *TCPConnectionManager {
	return NewTCPConnectionManagerWithLimit(addr, sock, tlsOpts, logger, DefaultMaxConcurrentDials)
}

// NewTCPConnectionManagerWithLimit is NewTCPConnectionManager with an
// explicit cap on concurrent in-flight dials.
func NewTCPConnectionManagerWithLimit(addr string, sock SocketOptions, tlsOpts TLSOptions, logger *zap.Logger, maxConcurrentDials int64) *TCPConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxConcurrentDials <= 0 {
		maxConcurrentDials = DefaultMaxConcurrentDials
	}
	return &TCPConnectionManager{
		Addr: addr, SocketOptions: sock, TLSOptions: tlsOpts, Logger: logger,
		dialLimit: semaphore.NewWeighted(maxConcurrentDials),
	}
}

// AcquireConnection implements ConnectionManager.
func (d *TCPConnectionManager) AcquireConnection(ctx context.Context, cb func(Connection, error)) {
	go func() {
		if err := d.dialLimit.Acquire(ctx, 1); err != nil {
			cb(nil, err)
			return
		}
		defer d.dialLimit.Release(1)

		conn, err := d.dial(ctx)
		cb(conn, err)
	}()
}

// Shutdown implements ConnectionManager. The dialer holds no connections of
// its own once they are handed out, so there is nothing to release here.
func (d *TCPConnectionManager) Shutdown(complete func()) {
	if complete != nil {
		complete()
	}
}

func (d *TCPConnectionManager) dial(ctx context.Context) (Connection, error) {
	dialer := &net.Dialer{Timeout: d.SocketOptions.ConnectTimeout, KeepAlive: d.SocketOptions.KeepAlive}
	raw, err := dialer.DialContext(ctx, "tcp", d.Addr)
	if err != nil {
		return nil, err
	}

	tlsCfg := d.TLSOptions.Config
	if tlsCfg == nil {
		tlsCfg = &tls.Config{}
	}
	tlsCfg = tlsCfg.Clone()
	tlsCfg.NextProtos = []string{"h2"}
	if d.TLSOptions.ServerName != "" {
		tlsCfg.ServerName = d.TLSOptions.ServerName
	}

	tlsConn := tls.Client(raw, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	if tlsConn.ConnectionState().NegotiatedProtocol != "h2" {
		tlsConn.Close()
		return nil, errNoH2ALPN
	}

	if _, err := tlsConn.Write(http2Preface); err != nil {
		tlsConn.Close()
		return nil, err
	}
	if _, err := tlsConn.Write(encodeFrameHeader(0, frameTypeSettings, 0, 0)); err != nil {
		tlsConn.Close()
		return nil, err
	}

	c := &tcpConnection{
		id:      uuid.NewString(),
		netConn: tlsConn,
		logger:  d.Logger,
		encoder: hpack.NewEncoder(4096, d.Logger),
		tasks:   make(chan func(), connTaskQueueSize),
		done:    make(chan struct{}),
		nextSeq: 1,
	}
	go c.run()
	return c, nil
}

var errNoH2ALPN = errors.New("server did not negotiate the h2 ALPN protocol")

// tcpConnection is the real Connection implementation returned by
// TCPConnectionManager: one TLS socket, one hpack.Encoder for the
// connection's single compression context (RFC 7541 §2.2 is per-connection,
// not per-stream), and monotonically increasing odd-numbered client stream
// IDs (RFC 9113 §5.1.1). A single goroutine (run) drains tasks off the
// tasks channel and is the only goroutine that ever touches netConn or
// encoder, so Schedule is a real hand-off rather than a same-stack call.
type tcpConnection struct {
	id      string
	netConn net.Conn
	logger  *zap.Logger
	encoder *hpack.Encoder

	tasks chan func()
	done  chan struct{}
	once  sync.Once

	nextSeq   uint32 // only ever touched from run's goroutine
	goingAway atomic.Bool
}

func (c *tcpConnection) run() {
	for {
		select {
		case task := <-c.tasks:
			task()
		case <-c.done:
			return
		}
	}
}

func (c *tcpConnection) ID() string { return c.id }

// Schedule queues task to run on c.run's goroutine. If the connection has
// already been released, task never runs.
func (c *tcpConnection) Schedule(task func()) {
	select {
	case c.tasks <- task:
	case <-c.done:
	}
}

func (c *tcpConnection) IsGoingAway() bool { return c.goingAway.Load() }

func (c *tcpConnection) Release() {
	c.once.Do(func() { close(c.done) })
	c.netConn.Close()
}

// CreateStream is only ever invoked by the manager from within a task
// already handed to Schedule (see Connection.CreateStream), so it runs on
// c.run's goroutine and needs no locking of its own: it is the only code
// that ever touches c.encoder or writes to c.netConn.
func (c *tcpConnection) CreateStream(req *Request) (Stream, error) {
	streamID := c.nextSeq
	c.nextSeq += 2

	fields := make([]hpack.HeaderField, 0, len(req.Headers)+3)
	fields = append(fields,
		hpack.HeaderField{Name: ":method", Value: req.Method, Hint: hpack.UseCache},
		hpack.HeaderField{Name: ":path", Value: req.Path, Hint: hpack.UseCache},
		hpack.HeaderField{Name: ":scheme", Value: "https", Hint: hpack.UseCache},
	)
	for _, h := range req.Headers {
		fields = append(fields, hpack.HeaderField{Name: h.Name, Value: h.Value, Hint: hpack.UseCache})
	}

	block, err := c.encoder.WriteHeaderBlock(fields...)
	if err != nil {
		return nil, err
	}

	flags := byte(flagEndHeaders)
	if len(req.Body) == 0 {
		flags |= flagEndStream
	}
	frame := encodeFrameHeader(len(block), frameTypeHeaders, flags, streamID)
	frame = append(frame, block...)
	if _, err := c.netConn.Write(frame); err != nil {
		return nil, err
	}

	return &tcpStream{id: streamID, connID: c.id}, nil
}

func encodeFrameHeader(length int, typ, flags byte, streamID uint32) []byte {
	h := make([]byte, frameHeaderLen)
	h[0] = byte(length >> 16)
	h[1] = byte(length >> 8)
	h[2] = byte(length)
	h[3] = typ
	h[4] = flags
	binary.BigEndian.PutUint32(h[5:], streamID&0x7fffffff)
	return h
}

type tcpStream struct {
	id     uint32
	connID string
}

func (s *tcpStream) ID() uint32           { return s.id }
func (s *tcpStream) ConnectionID() string { return s.connID }

package streammgr_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mtlabs/h2pool/streammgr"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	id   uint32
	conn string
}

func (s *fakeStream) ID() uint32           { return s.id }
func (s *fakeStream) ConnectionID() string { return s.conn }

// fakeConnection runs Schedule on its own goroutine rather than in the
// caller's stack, the same hand-off a real Connection performs, so tests
// that bind against it exercise the manager's dispatch-through-Schedule
// path instead of a same-stack shortcut.
type fakeConnection struct {
	id        string
	nextSeq   atomic.Uint32
	goingAway atomic.Bool
	scheduled atomic.Uint32
}

func (c *fakeConnection) ID() string { return c.id }

func (c *fakeConnection) Schedule(task func()) {
	c.scheduled.Add(1)
	go task()
}

func (c *fakeConnection) IsGoingAway() bool { return c.goingAway.Load() }
func (c *fakeConnection) Release()          {}

func (c *fakeConnection) CreateStream(req *streammgr.Request) (streammgr.Stream, error) {
	return &fakeStream{id: c.nextSeq.Add(1), conn: c.id}, nil
}

// fakeConnectionManager hands out fakeConnections synchronously (or, with
// async set, queues the callbacks until flush), recording how many times it
// was asked so tests can assert on connection-acquire fan-out without racing
// a real dialer.
type fakeConnectionManager struct {
	mu       sync.Mutex
	acquires int
	nextID   int
	async    bool
	queued   []func(streammgr.Connection, error)
}

func (f *fakeConnectionManager) AcquireConnection(ctx context.Context, cb func(streammgr.Connection, error)) {
	f.mu.Lock()
	f.acquires++
	f.nextID++
	id := f.nextID
	if f.async {
		f.queued = append(f.queued, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	cb(&fakeConnection{id: idString(id)}, nil)
}

func (f *fakeConnectionManager) Shutdown(complete func()) { complete() }

func (f *fakeConnectionManager) flush() {
	f.mu.Lock()
	queued := f.queued
	f.queued = nil
	f.mu.Unlock()
	for i, cb := range queued {
		cb(&fakeConnection{id: idString(i)}, nil)
	}
}

func idString(n int) string {
	return "conn-" + string(rune('a'+n))
}

func TestAcquireStreamBindsToExistingConnection(t *testing.T) {
	cm := &fakeConnectionManager{}
	m := streammgr.NewManager(streammgr.ManagerOptions{ConnectionManager: cm, AssumeMaxConcurrentStreams: 10})

	// The callback runs off of Schedule on another goroutine, so the test
	// waits for it rather than reading the result when AcquireStream returns.
	first := make(chan struct{})
	var got streammgr.Stream
	var gotErr error
	m.AcquireStream(context.Background(), streammgr.AcquireStreamOptions{Request: &streammgr.Request{}}, func(s streammgr.Stream, err error) {
		got, gotErr = s, err
		close(first)
	})
	<-first
	require.NoError(t, gotErr)
	require.NotNil(t, got)
	require.Equal(t, 1, cm.acquires)

	// A second acquisition should reuse the same connection rather than
	// dialing another one, since it still has plenty of spare capacity.
	second := make(chan struct{})
	m.AcquireStream(context.Background(), streammgr.AcquireStreamOptions{Request: &streammgr.Request{}}, func(s streammgr.Stream, err error) {
		got, gotErr = s, err
		close(second)
	})
	<-second
	require.NoError(t, gotErr)
	require.Equal(t, 1, cm.acquires)
}

func TestAcquireStreamFansOutConnectionRequests(t *testing.T) {
	cm := &fakeConnectionManager{async: true}
	m := streammgr.NewManager(streammgr.ManagerOptions{ConnectionManager: cm, AssumeMaxConcurrentStreams: 100})

	const total = 250
	results := make([]error, total)
	streams := make([]streammgr.Stream, total)
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		i := i
		m.AcquireStream(context.Background(), streammgr.AcquireStreamOptions{Request: &streammgr.Request{}}, func(s streammgr.Stream, err error) {
			results[i] = err
			streams[i] = s
			wg.Done()
		})
	}

	// 250 acquisitions at 100 per assumed connection need exactly 3
	// connection-acquire calls.
	require.Equal(t, 3, cm.acquires)

	for i := 0; i < total; i++ {
		require.Nil(t, streams[i], "nothing should be bound before any connection arrives")
	}

	cm.flush()
	wg.Wait()

	perConnection := map[string]int{}
	for i := 0; i < total; i++ {
		require.NoError(t, results[i])
		require.NotNil(t, streams[i])
		perConnection[streams[i].ConnectionID()]++
	}
	require.Len(t, perConnection, 3, "all three acquired connections should have absorbed some of the demand")
	for id, count := range perConnection {
		require.LessOrEqualf(t, count, 100, "connection %s exceeded its assumed capacity", id)
	}
}

func TestAcquireStreamAfterShutdownFails(t *testing.T) {
	cm := &fakeConnectionManager{}
	m := streammgr.NewManager(streammgr.ManagerOptions{ConnectionManager: cm, AssumeMaxConcurrentStreams: 10})

	done := make(chan struct{})
	m.Shutdown(func() { close(done) })
	<-done

	var gotErr error
	m.AcquireStream(context.Background(), streammgr.AcquireStreamOptions{Request: &streammgr.Request{}}, func(s streammgr.Stream, err error) {
		gotErr = err
	})
	require.Error(t, gotErr)
}

func TestShutdownFailsQueuedAcquisitions(t *testing.T) {
	cm := &fakeConnectionManager{async: true}
	m := streammgr.NewManager(streammgr.ManagerOptions{ConnectionManager: cm, AssumeMaxConcurrentStreams: 1})

	var gotErr error
	m.AcquireStream(context.Background(), streammgr.AcquireStreamOptions{Request: &streammgr.Request{}}, func(s streammgr.Stream, err error) {
		gotErr = err
	})
	// No connection has arrived yet, so the request is still queued.
	require.Nil(t, gotErr)

	done := make(chan struct{})
	m.Shutdown(func() { close(done) })
	<-done

	require.Error(t, gotErr)
}

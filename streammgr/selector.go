package streammgr

// managedConnection tracks a Connection the manager currently owns,
// alongside the accounting needed to pick it for new streams.
type managedConnection struct {
	conn Connection
	id   string

	// insertionSeq breaks ties between equally-loaded connections in the
	// order they were added, so binding is deterministic.
	insertionSeq uint64

	// numStreamsOpen is the manager's own count of streams it has bound
	// to this connection and not yet been told are closed. It is
	// reserved optimistically at bind time, under the manager's lock,
	// before CreateStream is actually called.
	numStreamsOpen int

	// maxConcurrentStreams is the capacity to bind against. It starts at
	// the manager's assumed value and is updated once the connection
	// reports its peer's real SETTINGS_MAX_CONCURRENT_STREAMS.
	maxConcurrentStreams int

	goingAway bool
}

func (mc *managedConnection) hasCapacity() bool {
	return !mc.goingAway && mc.numStreamsOpen < mc.maxConcurrentStreams
}

// selectConnection implements the manager's placement policy: the
// connection with the fewest open streams, ties broken by insertion order.
// Returns nil if no connection has spare capacity.
func selectConnection(conns []*managedConnection) *managedConnection {
	var best *managedConnection
	for _, mc := range conns {
		if !mc.hasCapacity() {
			continue
		}
		if best == nil ||
			mc.numStreamsOpen < best.numStreamsOpen ||
			(mc.numStreamsOpen == best.numStreamsOpen && mc.insertionSeq < best.insertionSeq) {
			best = mc
		}
	}
	return best
}

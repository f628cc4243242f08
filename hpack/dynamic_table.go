package hpack

// dynamicEntry is one row of the dynamic table's ring buffer.
type dynamicEntry struct {
	name  string
	value string
	size  uint32
	seq   uint64 // insertion sequence number, purely informational
}

func fieldKey(name, value string) string {
	// NUL cannot appear in an HTTP header name, so it safely separates the
	// two halves of the composite key.
	return name + "\x00" + value
}

// DynamicTable is the bounded FIFO of recently-transmitted header fields:
// a ring buffer with O(1) reverse lookup by (name,value) and by name
// alone, rather than the prepend-and-linear-scan design an array-backed
// table would need.
type DynamicTable struct {
	ring []dynamicEntry // fixed-capacity circular buffer
	head int            // index of the oldest live entry (index_0)
	count int

	maxSize     uint32 // current negotiated capacity
	size        uint32 // bytes currently in use
	protocolMax uint32 // upper bound maxSize may never exceed

	nextSeq uint64

	// fieldIndex/nameIndex map a key to the ring slot of the newest entry
	// with that key. Ring slots are stable for an entry's lifetime (until
	// overwritten by a later insert after the slot is evicted), so storing
	// the slot index directly — rather than re-deriving it — is safe as
	// long as eviction keeps these maps in sync, which insert/evictTo do.
	fieldIndex map[string]int
	nameIndex  map[string]int
}

// NewDynamicTable creates a table with the given protocol-settings upper
// bound on capacity. The table starts with maxSize equal to that bound,
// as an HPACK context does before any Dynamic Table Size Update; SetCapacity
// lowers or raises it later.
func NewDynamicTable(protocolMax uint32) *DynamicTable {
	return &DynamicTable{
		maxSize:     protocolMax,
		protocolMax: protocolMax,
		ring:        make([]dynamicEntry, ringCapacity(protocolMax)),
		fieldIndex:  make(map[string]int),
		nameIndex:   make(map[string]int),
	}
}

func ringCapacity(protocolMax uint32) int {
	// Every entry costs at least entryOverhead bytes, which bounds how many
	// can ever be live at once under protocolMax.
	return int(protocolMax/entryOverhead) + 1
}

// Size returns the number of bytes currently accounted for by live
// entries.
func (t *DynamicTable) Size() uint32 { return t.size }

// MaxSize returns the table's current negotiated capacity.
func (t *DynamicTable) MaxSize() uint32 { return t.maxSize }

// ProtocolMaxSize returns the upper bound capacity the table will never
// exceed, regardless of what SetCapacity is asked to set.
func (t *DynamicTable) ProtocolMaxSize() uint32 { return t.protocolMax }

// Len is the number of live entries.
func (t *DynamicTable) Len() int { return t.count }

func (t *DynamicTable) newestSlot() int {
	return (t.head + t.count - 1 + len(t.ring)) % len(t.ring)
}

func (t *DynamicTable) slotAt(offsetFromNewest int) int {
	return (t.newestSlot() - offsetFromNewest + len(t.ring)*2) % len(t.ring)
}

// indexOfSlot converts a live ring slot into its current 1-based HPACK
// dynamic-table index (62 for the newest entry, RFC 7541 §2.3.3).
func (t *DynamicTable) indexOfSlot(slot int) int {
	offset := (t.newestSlot() - slot + len(t.ring)) % len(t.ring)
	return staticTableSize + 1 + offset
}

// Get maps a combined static+dynamic 1-based index to its entry. Indices
// 1..61 address the static table; 62.. address the dynamic table,
// newest-first.
func (t *DynamicTable) Get(index int) (name, value string, ok bool) {
	if index <= staticTableSize {
		return staticGet(index)
	}
	d := index - staticTableSize // 1-based rank among dynamic entries, 1 = newest
	if d < 1 || d > t.count {
		return "", "", false
	}
	e := t.ring[t.slotAt(d-1)]
	return e.name, e.value, true
}

// Find looks for a full (name,value) match, falling back to a name-only
// match. It returns the HPACK index of each (0 if absent).
func (t *DynamicTable) Find(name, value string) (full int, nameOnly int) {
	if slot, ok := t.fieldIndex[fieldKey(name, value)]; ok {
		idx := t.indexOfSlot(slot)
		return idx, idx
	}
	if slot, ok := t.nameIndex[name]; ok {
		return 0, t.indexOfSlot(slot)
	}
	return 0, 0
}

// evictTo evicts oldest entries until size fits within limit.
func (t *DynamicTable) evictTo(limit uint32) {
	for t.count > 0 && t.size > limit {
		e := t.ring[t.head]
		t.size -= e.size
		if slot, ok := t.fieldIndex[fieldKey(e.name, e.value)]; ok && slot == t.head {
			delete(t.fieldIndex, fieldKey(e.name, e.value))
		}
		if slot, ok := t.nameIndex[e.name]; ok && slot == t.head {
			delete(t.nameIndex, e.name)
		}
		t.ring[t.head] = dynamicEntry{}
		t.head = (t.head + 1) % len(t.ring)
		t.count--
	}
}

// Insert adds a field to the table (RFC 7541 §4.4). If the field's size
// exceeds maxSize, the table is cleared entirely and nothing is inserted —
// this is not an error, just the defined eviction behavior.
func (t *DynamicTable) Insert(name, value string) {
	size := HeaderField{Name: name, Value: value}.Size()
	if size > t.maxSize {
		t.clear()
		return
	}
	t.evictTo(t.maxSize - size)

	if t.count == len(t.ring) {
		t.grow()
	}
	slot := (t.head + t.count) % len(t.ring)
	t.ring[slot] = dynamicEntry{name: name, value: value, size: size, seq: t.nextSeq}
	t.nextSeq++
	t.count++
	t.size += size

	t.fieldIndex[fieldKey(name, value)] = slot
	t.nameIndex[name] = slot
}

func (t *DynamicTable) clear() {
	t.ring = make([]dynamicEntry, ringCapacity(t.protocolMax))
	t.head = 0
	t.count = 0
	t.size = 0
	t.fieldIndex = make(map[string]int)
	t.nameIndex = make(map[string]int)
}

func (t *DynamicTable) grow() {
	newRing := make([]dynamicEntry, len(t.ring)*2)
	for i := 0; i < t.count; i++ {
		newRing[i] = t.ring[(t.head+i)%len(t.ring)]
	}
	t.ring = newRing
	t.head = 0
	t.fieldIndex = make(map[string]int, len(t.fieldIndex))
	t.nameIndex = make(map[string]int, len(t.nameIndex))
	for i := 0; i < t.count; i++ {
		e := t.ring[i]
		t.fieldIndex[fieldKey(e.name, e.value)] = i
		t.nameIndex[e.name] = i
	}
}

// SetCapacity changes the negotiated maxSize, evicting as needed. Callers
// are responsible for ensuring newMax does not exceed ProtocolMaxSize;
// SetCapacity clamps rather than erroring, since the clamp-vs-reject
// decision differs between the encoder side (caller's own policy) and the
// decoder side (hard protocol error, handled in decoder.go).
func (t *DynamicTable) SetCapacity(newMax uint32) {
	if newMax > t.protocolMax {
		newMax = t.protocolMax
	}
	t.evictTo(newMax)
	t.maxSize = newMax
}

// SetProtocolMaxSize updates the upper bound the table's capacity may
// never exceed, clamping maxSize down if necessary.
func (t *DynamicTable) SetProtocolMaxSize(newProtocolMax uint32) {
	t.protocolMax = newProtocolMax
	if needed := ringCapacity(newProtocolMax); needed > len(t.ring) {
		t.grow()
		for len(t.ring) < needed {
			t.grow()
		}
	}
	if t.maxSize > newProtocolMax {
		t.SetCapacity(newProtocolMax)
	}
}

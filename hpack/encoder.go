package hpack

import (
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
)

// Encoder is the top-level type for header compression (RFC 7541 §4.5). An
// Encoder exclusively owns one DynamicTable and is not safe for concurrent
// use; each direction on a connection should own its own Encoder.
type Encoder struct {
	table   *DynamicTable
	Huffman HuffmanMode
	// MaxFieldSize, if non-zero, rejects any field whose accounted size
	// (name + value + 32, RFC 7541 §4.1) exceeds it before encoding.
	MaxFieldSize uint32

	// pending resize tracks capacity changes not yet flushed to the wire.
	pending       bool
	lastValue     uint32
	smallestValue uint32

	logger   *zap.Logger
	poisoned bool
}

// NewEncoder creates an encoder whose dynamic table may never exceed
// protocolMax bytes (the local SETTINGS_HEADER_TABLE_SIZE value).
func NewEncoder(protocolMax uint32, logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{table: NewDynamicTable(protocolMax), logger: logger}
}

// Table exposes the encoder's dynamic table for inspection (size, entries).
func (e *Encoder) Table() *DynamicTable { return e.table }

// SetCapacity records a new desired dynamic-table capacity. Several
// calls between flushes are tracked as a (smallest,
// last) pair so that the next WriteHeaderBlock announces whichever
// Dynamic Table Size Update(s) RFC 7541 §4.2 requires for the peer to
// reconstruct the right sequence of resizes.
func (e *Encoder) SetCapacity(newMax uint32) {
	if !e.pending {
		e.pending = true
		e.smallestValue = newMax
		e.lastValue = newMax
		return
	}
	if newMax < e.smallestValue {
		e.smallestValue = newMax
	}
	e.lastValue = newMax
}

func (e *Encoder) flushCapacityChange(out []byte) []byte {
	if !e.pending {
		return out
	}
	if e.smallestValue < e.lastValue {
		out = EncodeInt(out, 0x20, 5, uint64(e.smallestValue))
		e.table.SetCapacity(e.smallestValue)
	}
	out = EncodeInt(out, 0x20, 5, uint64(e.lastValue))
	e.table.SetCapacity(e.lastValue)
	e.pending = false
	return out
}

// lookup resolves a header field against the static table first, then the
// dynamic table.
func (e *Encoder) lookup(name, value string) (full, nameOnly int) {
	if i := staticFindFull(name, value); i != 0 {
		return i, i
	}
	if dFull, _ := e.table.Find(name, value); dFull != 0 {
		return dFull, dFull
	}
	if i := staticFindName(name); i != 0 {
		return 0, i
	}
	if _, dName := e.table.Find(name, value); dName != 0 {
		return 0, dName
	}
	return 0, 0
}

func (e *Encoder) writeField(out []byte, h HeaderField) []byte {
	if h.Hint == NoCacheNoIndex {
		// Never search the tables for sensitive fields: referencing them by
		// index would let an observer infer whether this value matches one
		// seen before (RFC 7541 §7.1).
		out = EncodeInt(out, 0x10, 4, 0)
		out = EncodeString(out, h.Name, e.Huffman)
		return EncodeString(out, h.Value, e.Huffman)
	}

	full, nameOnly := e.lookup(h.Name, h.Value)
	switch {
	case full != 0:
		return EncodeInt(out, 0x80, 7, uint64(full))
	case nameOnly != 0 && h.Hint == UseCache:
		out = EncodeInt(out, 0x40, 6, uint64(nameOnly))
		out = EncodeString(out, h.Value, e.Huffman)
		e.table.Insert(h.Name, h.Value)
		return out
	case nameOnly != 0:
		out = EncodeInt(out, 0x00, 4, uint64(nameOnly))
		return EncodeString(out, h.Value, e.Huffman)
	case h.Hint == UseCache:
		out = EncodeInt(out, 0x40, 6, 0)
		out = EncodeString(out, h.Name, e.Huffman)
		out = EncodeString(out, h.Value, e.Huffman)
		e.table.Insert(h.Name, h.Value)
		return out
	default:
		out = EncodeInt(out, 0x00, 4, 0)
		out = EncodeString(out, h.Name, e.Huffman)
		return EncodeString(out, h.Value, e.Huffman)
	}
}

// WriteHeaderBlock encodes fields, in order, into a single header block.
// The returned slice is owned by the caller; the pooled scratch buffer
// used to build it is returned to bytebufferpool before this returns.
func (e *Encoder) WriteHeaderBlock(fields ...HeaderField) ([]byte, error) {
	if e.poisoned {
		return nil, ErrPoisoned
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = e.flushCapacityChange(buf.B)
	for _, h := range fields {
		if e.MaxFieldSize != 0 && h.Size() > e.MaxFieldSize {
			e.poisoned = true
			return nil, newError(KindFieldSizeExceedsConfiguredLimit, "field %q exceeds configured limit of %d bytes", h.Name, e.MaxFieldSize)
		}
		buf.B = e.writeField(buf.B, h)
	}

	out := make([]byte, len(buf.B))
	copy(out, buf.B)
	e.logger.Debug("encoded header block", zap.Int("fields", len(fields)), zap.Int("bytes", len(out)))
	return out, nil
}

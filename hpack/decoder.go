package hpack

import "go.uber.org/zap"

// ResultKind discriminates the three things a single Decoder.Feed call can
// produce. This is a tagged variant rather than an interface hierarchy:
// callers switch on Kind instead of type asserting.
type ResultKind byte

const (
	// ResultOngoing means the input given to Feed was fully consumed
	// without completing a field or table-size update; the decoder holds
	// its partial state and is ready for more bytes on the next call.
	ResultOngoing ResultKind = iota
	// ResultField means a complete header field was decoded.
	ResultField
	// ResultResize means a Dynamic Table Size Update was applied.
	ResultResize
)

// Result is the outcome of one Decoder.Feed call.
type Result struct {
	Kind    ResultKind
	Field   HeaderField
	NewSize uint32
}

type decoderStage byte

const (
	stageDispatch decoderStage = iota
	stageIndexed
	stageNameIndex
	stageNameLiteral
	stageValueLiteral
	stageResize
)

type repKind byte

const (
	repIndexed repKind = iota
	repIncremental
	repWithoutIndexing
	repNeverIndexed
	repResize
)

// Decoder is a restartable header-block decoder. It is safe to feed
// input one byte at a time: every Feed call
// advances as far as the given bytes allow and returns how many it
// consumed, so a caller can hand it a TCP read buffer of any size,
// including one byte, without losing state between calls.
//
// A Decoder is poisoned on the first error it returns (RFC 7541 §1.1: any
// framing error is connection-fatal) and every subsequent Feed call fails
// without reinspecting the input.
type Decoder struct {
	table  *DynamicTable
	logger *zap.Logger

	poisoned bool

	stage decoderStage
	rep   repKind

	// sawField is true once any header-field representation has been
	// decoded in the current header block. A Dynamic Table Size Update
	// is only legal before the first one (RFC 7541 §4.2).
	sawField bool

	idx      *IntDecoder
	name     string // resolved once the name half of a literal is ready
	nameStr  *StringDecoder
	valueStr *StringDecoder
}

// NewDecoder creates a decoder sharing the given dynamic table. Typically
// one Decoder and one DynamicTable are created per connection-direction and
// live for the connection's lifetime, spanning many header blocks.
func NewDecoder(table *DynamicTable, logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		table:    table,
		logger:   logger,
		idx:      NewIntDecoder(7),
		nameStr:  NewStringDecoder(),
		valueStr: NewStringDecoder(),
	}
}

// Table exposes the decoder's dynamic table.
func (d *Decoder) Table() *DynamicTable { return d.table }

// StartBlock must be called before feeding the first octet of a new header
// block (one per HEADERS/PUSH_PROMISE, reassembled across any CONTINUATION
// frames by the caller). It resets the within-block state the Dynamic Table
// Size Update position constraint depends on; the dynamic table's contents
// persist across blocks.
func (d *Decoder) StartBlock() {
	d.sawField = false
	d.stage = stageDispatch
}

// Feed decodes as much of b as is needed to produce a single Result,
// returning the number of bytes consumed. When it returns ResultOngoing,
// consumed equals len(b): the whole input was absorbed into partial state
// and the next field or resize will emerge from a later Feed call once more
// bytes arrive.
func (d *Decoder) Feed(b []byte) (consumed int, result Result, err error) {
	if d.poisoned {
		return 0, Result{}, ErrPoisoned
	}
	consumed, result, err = d.feed(b)
	if err != nil {
		d.poisoned = true
	}
	return consumed, result, err
}

func (d *Decoder) feed(b []byte) (int, Result, error) {
	consumed := 0
	for {
		switch d.stage {
		case stageDispatch:
			if consumed >= len(b) {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			tag := b[consumed]
			switch {
			case tag&0x80 != 0:
				d.rep = repIndexed
				d.idx.SetPrefix(7)
				d.stage = stageIndexed
			case tag&0x40 != 0:
				d.rep = repIncremental
				d.idx.SetPrefix(6)
				d.stage = stageNameIndex
			case tag&0x20 != 0:
				d.rep = repResize
				if d.sawField {
					return consumed, Result{}, newError(KindSizeUpdateAfterHeader, "dynamic table size update after a header field in this block")
				}
				d.idx.SetPrefix(5)
				d.stage = stageResize
			case tag&0x10 != 0:
				d.rep = repNeverIndexed
				d.idx.SetPrefix(4)
				d.stage = stageNameIndex
			default:
				d.rep = repWithoutIndexing
				d.idx.SetPrefix(4)
				d.stage = stageNameIndex
			}

		case stageIndexed:
			n, ierr := d.idx.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, Result{}, ierr
			}
			if !d.idx.Complete() {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			index := d.idx.Value()
			if index == 0 {
				return consumed, Result{}, newError(KindInvalidTableIndex, "index 0 is illegal in indexed representation")
			}
			name, value, ok := d.table.Get(int(index))
			if !ok {
				return consumed, Result{}, newError(KindInvalidTableIndex, "index %d does not name a table entry", index)
			}
			d.sawField = true
			d.stage = stageDispatch
			return consumed, Result{Kind: ResultField, Field: HeaderField{Name: name, Value: value, Hint: UseCache}}, nil

		case stageNameIndex:
			n, ierr := d.idx.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, Result{}, ierr
			}
			if !d.idx.Complete() {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			index := d.idx.Value()
			if index == 0 {
				d.nameStr.Reset()
				d.stage = stageNameLiteral
				continue
			}
			name, _, ok := d.table.Get(int(index))
			if !ok {
				return consumed, Result{}, newError(KindInvalidTableIndex, "index %d does not name a table entry", index)
			}
			d.name = name
			d.valueStr.Reset()
			d.stage = stageValueLiteral

		case stageNameLiteral:
			n, ierr := d.nameStr.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, Result{}, ierr
			}
			if !d.nameStr.Done() {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			d.name = d.nameStr.Take()
			d.valueStr.Reset()
			d.stage = stageValueLiteral

		case stageValueLiteral:
			n, ierr := d.valueStr.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, Result{}, ierr
			}
			if !d.valueStr.Done() {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			name := d.name
			value := d.valueStr.Take()
			hint := NoCache
			switch d.rep {
			case repIncremental:
				hint = UseCache
				d.table.Insert(name, value)
			case repNeverIndexed:
				hint = NoCacheNoIndex
			}
			d.sawField = true
			d.stage = stageDispatch
			return consumed, Result{Kind: ResultField, Field: HeaderField{Name: name, Value: value, Hint: hint}}, nil

		case stageResize:
			n, ierr := d.idx.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, Result{}, ierr
			}
			if !d.idx.Complete() {
				return consumed, Result{Kind: ResultOngoing}, nil
			}
			newSize := d.idx.Value()
			if newSize > uint64(d.table.ProtocolMaxSize()) {
				return consumed, Result{}, newError(KindSizeUpdateExceedsSetting,
					"dynamic table size update %d exceeds protocol setting %d", newSize, d.table.ProtocolMaxSize())
			}
			d.table.SetCapacity(uint32(newSize))
			d.stage = stageDispatch
			return consumed, Result{Kind: ResultResize, NewSize: uint32(newSize)}, nil
		}
	}
}

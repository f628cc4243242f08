// Package hpack implements RFC 7541 header compression: integer and string
// primitives, the static and dynamic header tables, and a byte-restartable
// header-block encoder/decoder pair.
package hpack

// CompressionHint tells the encoder how a header field may be represented.
type CompressionHint byte

const (
	// UseCache allows the encoder to add the field to the dynamic table and
	// to reference existing table entries for it.
	UseCache CompressionHint = iota
	// NoCache allows table lookups for compression but never inserts the
	// field into the dynamic table.
	NoCache
	// NoCacheNoIndex forces a Literal Header Field Never Indexed
	// representation, signaling downstream intermediaries not to re-index
	// the field either (RFC 7541 §7.1, sensitive headers).
	NoCacheNoIndex
)

// HeaderField is a single (name, value) pair plus the compression hint that
// governs how the encoder may represent it.
type HeaderField struct {
	Name  string
	Value string
	Hint  CompressionHint
}

// Size is the entry's contribution to dynamic-table accounting, RFC 7541
// §4.1: name length + value length + 32 bytes of overhead.
func (h HeaderField) Size() uint32 {
	return uint32(len(h.Name)+len(h.Value)) + entryOverhead
}

// entryOverhead is the fixed per-entry accounting overhead defined by
// RFC 7541 §4.1.
const entryOverhead = 32

package hpack

// HuffmanMode controls how Encoder chooses between raw and Huffman-coded
// string representations (RFC 7541 §5.2).
type HuffmanMode byte

const (
	// HuffmanSmallest picks whichever of raw or Huffman coding is shorter.
	HuffmanSmallest HuffmanMode = iota
	// HuffmanNever always emits the raw octets.
	HuffmanNever
	// HuffmanAlways always Huffman-codes the value.
	HuffmanAlways
)

// MaxStringLength bounds the length prefix a string decoder will accept,
// guarding against a peer claiming an absurd allocation before any bytes
// have even arrived.
const MaxStringLength = 1 << 24

// EncodeString appends the RFC 7541 §5.2 encoding of s to dst, using the
// 7-bit length prefix shared by every string literal in a header block.
func EncodeString(dst []byte, s string, mode HuffmanMode) []byte {
	useHuffman := false
	switch mode {
	case HuffmanAlways:
		useHuffman = true
	case HuffmanSmallest:
		useHuffman = HuffmanLen(s) < len(s)
	}
	if !useHuffman {
		dst = EncodeInt(dst, 0x00, 7, uint64(len(s)))
		return append(dst, s...)
	}
	dst = EncodeInt(dst, 0x80, 7, uint64(HuffmanLen(s)))
	return EncodeHuffman(dst, s)
}

type stringDecodeState byte

const (
	stringStateInit stringDecodeState = iota
	stringStateLength
	stringStateValue
	stringStateDone
)

// StringDecoder decodes a single RFC 7541 §5.2 string literal one byte at a
// time, restartable across Feed calls. Its own scratch buffer accumulates
// the decoded octets; callers drain it with Take once Done reports true.
type StringDecoder struct {
	state   stringDecodeState
	huffman bool
	length  *IntDecoder
	remain  uint64
	hd      *HuffmanDecoder
	scratch []byte
}

// NewStringDecoder creates a decoder ready to read a new string literal.
func NewStringDecoder() *StringDecoder {
	return &StringDecoder{length: NewIntDecoder(7)}
}

// Reset prepares the decoder to read another string literal, reusing its
// scratch buffer's storage.
func (d *StringDecoder) Reset() {
	d.state = stringStateInit
	d.huffman = false
	d.length.Reset()
	d.remain = 0
	d.hd = nil
	d.scratch = d.scratch[:0]
}

// Done reports whether the full string has been decoded.
func (d *StringDecoder) Done() bool { return d.state == stringStateDone }

// Take returns the decoded string. Only valid once Done returns true.
func (d *StringDecoder) Take() string { return string(d.scratch) }

// Feed consumes as much of b as is available, decoding further into the
// string literal, and returns the number of bytes consumed.
func (d *StringDecoder) Feed(b []byte) (consumed int, err *Error) {
	for consumed < len(b) && d.state != stringStateDone {
		switch d.state {
		case stringStateInit:
			d.huffman = b[consumed]&0x80 != 0
			d.state = stringStateLength
			// Don't advance consumed: the length prefix shares this same
			// octet (high bit is the Huffman flag, low 7 bits begin the
			// length integer), so the next loop iteration re-presents it
			// to the length IntDecoder, which masks off the high bit.
		case stringStateLength:
			n, ierr := d.length.Feed(b[consumed:])
			consumed += n
			if ierr != nil {
				return consumed, ierr
			}
			if !d.length.Complete() {
				return consumed, nil
			}
			d.remain = d.length.Value()
			if d.remain > MaxStringLength {
				return consumed, newError(KindStringLengthExceedsLimit, "string length %d exceeds limit", d.remain)
			}
			if d.huffman {
				d.hd = NewHuffmanDecoder()
			}
			d.scratch = d.scratch[:0]
			if d.remain == 0 {
				// An empty literal has no value octets to wait for.
				d.state = stringStateDone
				return consumed, nil
			}
			d.state = stringStateValue
			continue
		case stringStateValue:
			take := d.remain
			if avail := uint64(len(b) - consumed); take > avail {
				take = avail
			}
			chunk := b[consumed : consumed+int(take)]
			if d.huffman {
				var herr *Error
				d.scratch, herr = d.hd.Feed(d.scratch, chunk)
				if herr != nil {
					return consumed + int(take), herr
				}
			} else {
				d.scratch = append(d.scratch, chunk...)
			}
			consumed += int(take)
			d.remain -= take
			if d.remain == 0 {
				if d.huffman {
					if herr := d.hd.Finish(); herr != nil {
						return consumed, herr
					}
				}
				d.state = stringStateDone
			}
			return consumed, nil
		}
	}
	return consumed, nil
}

package hpack

import "github.com/pkg/errors"

// Kind classifies an HPACK failure. Any Kind other than the
// zero value poisons the codec instance that produced it: subsequent calls
// on that codec fail immediately with ErrPoisoned.
type Kind int

const (
	// KindNone is the zero value; never attached to a returned Error.
	KindNone Kind = iota
	KindMalformedInteger
	KindIntegerOverflow
	KindStringLengthExceedsLimit
	KindHuffmanDecodeFailed
	KindInvalidTableIndex
	KindSizeUpdateAfterHeader
	KindSizeUpdateExceedsSetting
	KindFieldSizeExceedsConfiguredLimit
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInteger:
		return "malformed_integer"
	case KindIntegerOverflow:
		return "integer_overflow"
	case KindStringLengthExceedsLimit:
		return "string_length_exceeds_limit"
	case KindHuffmanDecodeFailed:
		return "huffman_decode_failed"
	case KindInvalidTableIndex:
		return "invalid_table_index"
	case KindSizeUpdateAfterHeader:
		return "size_update_after_header"
	case KindSizeUpdateExceedsSetting:
		return "size_update_exceeds_setting"
	case KindFieldSizeExceedsConfiguredLimit:
		return "field_size_exceeds_configured_limit"
	default:
		return "none"
	}
}

// Error is the error type returned by Encoder and Decoder. Err carries a
// stack trace via github.com/pkg/errors for logging; Kind is what callers
// should switch on.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// ErrPoisoned is returned by any call made to a codec after a prior call
// already failed with an Error.
var ErrPoisoned = errors.New("hpack: codec is poisoned by a prior error")

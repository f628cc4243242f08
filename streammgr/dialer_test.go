package streammgr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeFrameHeaderLayout(t *testing.T) {
	h := encodeFrameHeader(10, frameTypeHeaders, flagEndHeaders|flagEndStream, 3)
	require.Len(t, h, frameHeaderLen)
	require.Equal(t, []byte{0x00, 0x00, 0x0a}, h[0:3]) // 24-bit length
	require.Equal(t, byte(frameTypeHeaders), h[3])
	require.Equal(t, byte(flagEndHeaders|flagEndStream), h[4])
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x03}, h[5:9])
}

func TestEncodeFrameHeaderMasksReservedStreamIDBit(t *testing.T) {
	// RFC 9113 §4.1: the top bit of the stream identifier is reserved and
	// must be cleared by the sender.
	h := encodeFrameHeader(0, frameTypeSettings, 0, 0x80000001)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, h[5:9])
}

func TestEncodeFrameHeaderLargeLengthFillsHighLengthByte(t *testing.T) {
	h := encodeFrameHeader(1<<20, frameTypeHeaders, 0, 1)
	require.Equal(t, []byte{0x10, 0x00, 0x00}, h[0:3])
}

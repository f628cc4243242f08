package hpack_test

import (
	"testing"

	"github.com/mtlabs/h2pool/hpack"
	"github.com/stretchr/testify/require"
)

func TestEncodeIntRFCExamples(t *testing.T) {
	// RFC 7541 §C.1: 10 fits in a 5-bit prefix, no continuation needed.
	require.Equal(t, []byte{0x0a}, hpack.EncodeInt(nil, 0x00, 5, 10))
	// RFC 7541 §C.1.2: 1337 with a 5-bit prefix.
	require.Equal(t, []byte{0x1f, 0x9a, 0x0a}, hpack.EncodeInt(nil, 0x00, 5, 1337))
	// RFC 7541 §C.1.3: 42 with an 8-bit prefix.
	require.Equal(t, []byte{0x2a}, hpack.EncodeInt(nil, 0x00, 8, 42))
}

func TestIntDecoderRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 9, 10, 127, 128, 1337, 16383, 1 << 20} {
		for _, n := range []byte{4, 5, 6, 7, 8} {
			encoded := hpack.EncodeInt(nil, 0x00, n, v)
			d := hpack.NewIntDecoder(n)
			consumed, err := d.Feed(encoded)
			require.Nil(t, err)
			require.True(t, d.Complete())
			require.Equal(t, len(encoded), consumed)
			require.Equal(t, v, d.Value())
		}
	}
}

func TestIntDecoderByteAtATime(t *testing.T) {
	encoded := hpack.EncodeInt(nil, 0x00, 5, 1337)
	d := hpack.NewIntDecoder(5)
	var total int
	for _, b := range encoded {
		n, err := d.Feed([]byte{b})
		require.Nil(t, err)
		total += n
	}
	require.True(t, d.Complete())
	require.Equal(t, len(encoded), total)
	require.Equal(t, uint64(1337), d.Value())
}

func TestIntDecoderSetPrefixReuse(t *testing.T) {
	d := hpack.NewIntDecoder(7)
	_, err := d.Feed(hpack.EncodeInt(nil, 0x00, 7, 5))
	require.Nil(t, err)
	require.Equal(t, uint64(5), d.Value())

	d.SetPrefix(5)
	_, err = d.Feed(hpack.EncodeInt(nil, 0x00, 5, 1337))
	require.Nil(t, err)
	require.Equal(t, uint64(1337), d.Value())
}

func TestIntDecoderOverflow(t *testing.T) {
	d := hpack.NewIntDecoder(5)
	// An unbounded run of continuation octets with the high bit set must
	// eventually be rejected rather than overflow silently.
	huge := []byte{0x1f}
	for i := 0; i < 12; i++ {
		huge = append(huge, 0xff)
	}
	huge = append(huge, 0x01)
	_, err := d.Feed(huge)
	require.NotNil(t, err)
}

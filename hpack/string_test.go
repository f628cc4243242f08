package hpack_test

import (
	"testing"

	"github.com/mtlabs/h2pool/hpack"
	"github.com/stretchr/testify/require"
)

func TestStringRoundTripRaw(t *testing.T) {
	for _, s := range []string{"", "a", "www.example.com", "custom-key", "custom-value"} {
		encoded := hpack.EncodeString(nil, s, hpack.HuffmanNever)
		d := hpack.NewStringDecoder()
		consumed, err := d.Feed(encoded)
		require.Nil(t, err)
		require.True(t, d.Done())
		require.Equal(t, len(encoded), consumed)
		require.Equal(t, s, d.Take())
	}
}

func TestStringRoundTripHuffman(t *testing.T) {
	for _, s := range []string{"", "a", "www.example.com", "no-cache", "Mozilla/5.0 (X11; Linux x86_64)"} {
		encoded := hpack.EncodeString(nil, s, hpack.HuffmanAlways)
		d := hpack.NewStringDecoder()
		consumed, err := d.Feed(encoded)
		require.Nil(t, err)
		require.True(t, d.Done())
		require.Equal(t, len(encoded), consumed)
		require.Equal(t, s, d.Take())
	}
}

func TestStringDecoderByteAtATime(t *testing.T) {
	s := "custom-value-field"
	encoded := hpack.EncodeString(nil, s, hpack.HuffmanAlways)
	d := hpack.NewStringDecoder()
	var total int
	for _, b := range encoded {
		n, err := d.Feed([]byte{b})
		require.Nil(t, err)
		total += n
	}
	require.True(t, d.Done())
	require.Equal(t, len(encoded), total)
	require.Equal(t, s, d.Take())
}

func TestStringDecoderLengthLimit(t *testing.T) {
	encoded := hpack.EncodeInt(nil, 0x00, 7, hpack.MaxStringLength+1)
	d := hpack.NewStringDecoder()
	_, err := d.Feed(encoded)
	require.NotNil(t, err)
}

func TestHuffmanSmallestPicksShorter(t *testing.T) {
	// A short, highly-compressible ASCII run should Huffman-code smaller
	// than it would raw.
	s := "aaaaaaaaaaaaaaaaaaaa"
	smallest := hpack.EncodeString(nil, s, hpack.HuffmanSmallest)
	raw := hpack.EncodeString(nil, s, hpack.HuffmanNever)
	require.LessOrEqual(t, len(smallest), len(raw))
}

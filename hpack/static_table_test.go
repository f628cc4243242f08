package hpack_test

import (
	"testing"

	"github.com/mtlabs/h2pool/hpack"
	"github.com/stretchr/testify/require"
)

func TestDecodeStaticIndexedField(t *testing.T) {
	// RFC 7541 §C.2.1: a bare 0x82 is the indexed field (":method", "GET").
	table := hpack.NewDynamicTable(4096)
	dec := hpack.NewDecoder(table, nil)
	dec.StartBlock()
	consumed, result, err := dec.Feed([]byte{0x82})
	require.NoError(t, err)
	require.Equal(t, 1, consumed)
	require.Equal(t, hpack.ResultField, result.Kind)
	require.Equal(t, ":method", result.Field.Name)
	require.Equal(t, "GET", result.Field.Value)
}

func TestEncodeStaticIndexedField(t *testing.T) {
	enc := hpack.NewEncoder(4096, nil)
	out, err := enc.WriteHeaderBlock(hpack.HeaderField{Name: ":method", Value: "GET", Hint: hpack.UseCache})
	require.NoError(t, err)
	require.Equal(t, []byte{0x82}, out)
}

package hpack_test

import (
	"testing"

	"github.com/mtlabs/h2pool/hpack"
	"github.com/stretchr/testify/require"
)

func TestDynamicTableInsertAndLookup(t *testing.T) {
	table := hpack.NewDynamicTable(4096)
	table.SetCapacity(4096)
	table.Insert("custom-key", "custom-value")
	full, nameOnly := table.Find("custom-key", "custom-value")
	require.NotZero(t, full)
	require.Equal(t, full, nameOnly)

	name, value, ok := table.Get(full)
	require.True(t, ok)
	require.Equal(t, "custom-key", name)
	require.Equal(t, "custom-value", value)
}

func TestDynamicTableEvictsOldestFirst(t *testing.T) {
	table := hpack.NewDynamicTable(4096)
	table.SetCapacity(88) // room for two 43-byte entries but not three
	table.Insert("name1", "value1")
	table.Insert("name2", "value2")
	table.Insert("name3", "value3")

	full, _ := table.Find("name1", "value1")
	require.Zero(t, full, "oldest entry should have been evicted")

	full, _ = table.Find("name3", "value3")
	require.NotZero(t, full, "newest entry should survive")
}

func TestDynamicTableOversizeEntryClearsTable(t *testing.T) {
	table := hpack.NewDynamicTable(4096)
	table.SetCapacity(64)
	table.Insert("small", "fits")
	require.NotZero(t, table.Len())

	table.Insert("this-name-and-value-together-exceed-the-table-capacity", "by-a-lot-of-bytes-indeed")
	require.Zero(t, table.Len())
	require.Zero(t, table.Size())
}

func TestDynamicTableIndexingIsNewestFirst(t *testing.T) {
	table := hpack.NewDynamicTable(4096)
	table.SetCapacity(4096)
	table.Insert("a", "1")
	table.Insert("b", "2")

	// The most recently inserted entry is always dynamic index 62.
	name, value, ok := table.Get(62)
	require.True(t, ok)
	require.Equal(t, "b", name)
	require.Equal(t, "2", value)

	name, value, ok = table.Get(63)
	require.True(t, ok)
	require.Equal(t, "a", name)
	require.Equal(t, "1", value)
}

func TestDecodeIndexedNameLiteralLandsAtIndex62(t *testing.T) {
	enc := hpack.NewEncoder(4096, nil)
	block, err := enc.WriteHeaderBlock(hpack.HeaderField{Name: ":path", Value: "/path/hello", Hint: hpack.UseCache})
	require.NoError(t, err)

	table := hpack.NewDynamicTable(4096)
	dec := hpack.NewDecoder(table, nil)
	dec.StartBlock()
	consumed, result, err := dec.Feed(block)
	require.NoError(t, err)
	require.Equal(t, len(block), consumed)
	require.Equal(t, hpack.ResultField, result.Kind)
	require.Equal(t, ":path", result.Field.Name)
	require.Equal(t, "/path/hello", result.Field.Value)

	name, value, ok := table.Get(62)
	require.True(t, ok)
	require.Equal(t, ":path", name)
	require.Equal(t, "/path/hello", value)
}

package dmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringRoundTrip(t *testing.T) {
	encoded := EncodeString("minm", "Song Title")
	items, err := Decode(encoded)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "minm", items[0].Tag)
	require.Equal(t, KindString, items[0].Kind)
	require.Equal(t, "Song Title", items[0].StringValue())
}

func TestIntRoundTripEachWidth(t *testing.T) {
	cases := []int64{5, -5, 300, 70000, 5_000_000_000}
	for _, v := range cases {
		encoded := EncodeInt("astm", v)
		items, err := Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, v, items[0].IntValue())
	}
}

func TestContainerRecurses(t *testing.T) {
	inner := EncodeString("minm", "Title")
	inner = append(inner, EncodeString("asar", "Artist")...)
	outer := EncodeContainer("mlit", inner)

	items, err := Decode(outer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, KindContainer, items[0].Kind)
	require.Len(t, items[0].Children, 2)
	require.Equal(t, "Title", items[0].Children[0].StringValue())
}

func TestUnknownTagDecodesAsRaw(t *testing.T) {
	encoded := encodeEntry("zzzz", []byte{1, 2, 3})
	items, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, KindRaw, items[0].Kind)
}

func TestTruncatedEntryErrors(t *testing.T) {
	_, err := Decode([]byte{'m', 'i', 'n', 'm', 0, 0, 0, 10, 'a'})
	require.ErrorIs(t, err, ErrTruncated)
}

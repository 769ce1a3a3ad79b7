package plist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	d := NewDict().
		Set("deviceid", "AA:BB:CC:DD:EE:FF").
		Set("features", int64(0x527FFFF7)).
		Set("model", "AirPlay2Go1,1").
		Set("flags", int64(4)).
		Set("supportsScreen", false)

	enc, err := Marshal(d)
	require.NoError(t, err)
	require.Equal(t, "bplist00", string(enc[:8]))

	dec, err := Unmarshal(enc)
	require.NoError(t, err)

	v, ok := dec.Get("deviceid")
	require.True(t, ok)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", v)

	v, ok = dec.Get("features")
	require.True(t, ok)
	require.Equal(t, int64(0x527FFFF7), v)
}

func TestMarshalNestedDict(t *testing.T) {
	inner := NewDict().Set("a", int64(1))
	outer := NewDict().Set("pi", inner).Set("name", "x")

	enc, err := Marshal(outer)
	require.NoError(t, err)

	dec, err := Unmarshal(enc)
	require.NoError(t, err)

	piObj, ok := dec.Get("pi")
	require.True(t, ok)
	piDict, ok := piObj.(*Dict)
	require.True(t, ok)
	v, ok := piDict.Get("a")
	require.True(t, ok)
	require.Equal(t, int64(1), v)
}

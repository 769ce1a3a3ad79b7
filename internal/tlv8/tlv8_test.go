package tlv8

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripSmall(t *testing.T) {
	items := []Item{{Type: 1, Value: []byte("hello")}, {Type: 6, Value: []byte{1}}}
	enc := Encode(items)
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, items, dec)
}

func TestFragmentationOver255(t *testing.T) {
	big := bytes.Repeat([]byte{0x42}, 600)
	items := []Item{{Type: 3, Value: big}}
	enc := Encode(items)

	// expect 255, 255, 90 byte fragments
	require.Equal(t, byte(255), enc[1])
	require.Equal(t, byte(255), enc[2+255+1])

	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Len(t, dec, 1)
	require.Equal(t, big, dec[0].Value)
}

func TestFragmentationExactMultipleGetsTerminator(t *testing.T) {
	exact := bytes.Repeat([]byte{0x7}, 510) // exactly 2*255
	enc := Encode([]Item{{Type: 9, Value: exact}})
	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Len(t, dec, 1)
	require.Equal(t, exact, dec[0].Value)
}

func TestDecodeTruncatedErrors(t *testing.T) {
	_, err := Decode([]byte{1, 5, 1, 2})
	require.ErrorIs(t, err, ErrTruncated)
}

func TestGetHelpers(t *testing.T) {
	items := []Item{{Type: 6, Value: []byte{4}}}
	v, ok := GetByte(items, 6)
	require.True(t, ok)
	require.Equal(t, byte(4), v)

	_, ok = Get(items, 99)
	require.False(t, ok)
}

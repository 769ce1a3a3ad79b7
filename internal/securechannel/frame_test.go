package securechannel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func keys() (readKey, writeKey []byte) {
	readKey = bytes.Repeat([]byte{0x11}, 32)
	writeKey = bytes.Repeat([]byte{0x22}, 32)
	return
}

func TestRoundTripSingleFrame(t *testing.T) {
	readKey, writeKey := keys()
	var wire bytes.Buffer

	sender, err := NewChannel(nil, &wire, writeKey, readKey)
	require.NoError(t, err)
	receiver, err := NewChannel(&wire, nil, readKey, writeKey)
	require.NoError(t, err)

	require.NoError(t, sender.WriteFrame([]byte("hello airplay")))

	out, err := receiver.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "hello airplay", string(out))
}

func TestFrameCountersAdvanceIndependently(t *testing.T) {
	readKey, writeKey := keys()
	var wire bytes.Buffer

	sender, err := NewChannel(nil, &wire, writeKey, readKey)
	require.NoError(t, err)
	receiver, err := NewChannel(&wire, nil, readKey, writeKey)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, sender.WriteFrame([]byte("msg")))
	}
	for i := 0; i < 5; i++ {
		out, err := receiver.ReadFrame()
		require.NoError(t, err)
		require.Equal(t, "msg", string(out))
	}
}

func TestTamperedFrameFailsDecrypt(t *testing.T) {
	readKey, writeKey := keys()
	var wire bytes.Buffer

	sender, err := NewChannel(nil, &wire, writeKey, readKey)
	require.NoError(t, err)
	receiver, err := NewChannel(&wire, nil, readKey, writeKey)
	require.NoError(t, err)

	require.NoError(t, sender.WriteFrame([]byte("payload")))
	raw := wire.Bytes()
	raw[len(raw)-1] ^= 0xFF

	_, err = receiver.ReadFrame()
	require.ErrorIs(t, err, ErrDecryptFailed)
}

func TestOversizedFrameRejected(t *testing.T) {
	readKey, writeKey := keys()
	var wire bytes.Buffer
	sender, err := NewChannel(nil, &wire, writeKey, readKey)
	require.NoError(t, err)

	big := make([]byte, MaxFramePlaintext+1)
	err = sender.WriteFrame(big)
	require.ErrorIs(t, err, ErrFrameTooLarge)
}

package securechannel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/airtest"
	"github.com/airtunes2/airplay2/internal/pairing"
)

// TestChannelOverTransientPairVerify drives a real transient Pair-Verify
// handshake and then exchanges a frame on a Channel built from its
// derived SessionKeys, exercising the same accessory-side wiring conn.go
// uses once VerifyComplete is reached.
func TestChannelOverTransientPairVerify(t *testing.T) {
	accessoryPub, accessoryPriv, err := airtest.GenerateAccessoryIdentity()
	require.NoError(t, err)

	srv := pairing.NewVerifyServer("AA:BB:CC:DD:EE:FF", accessoryPriv, accessoryPub, nil)

	keys, err := airtest.RunTransientPairVerify(srv)
	require.NoError(t, err)

	var wire bytes.Buffer
	accessory, err := NewChannel(nil, &wire, keys.WriteKey[:], keys.ReadKey[:])
	require.NoError(t, err)
	controller, err := NewChannel(&wire, nil, keys.ReadKey[:], keys.WriteKey[:])
	require.NoError(t, err)

	require.NoError(t, accessory.WriteFrame([]byte("RTSP/1.0 200 OK")))

	out, err := controller.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "RTSP/1.0 200 OK", string(out))
}

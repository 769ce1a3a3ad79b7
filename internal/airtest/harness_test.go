package airtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/pairing"
	"github.com/airtunes2/airplay2/internal/securechannel"
)

func TestRunTransientPairVerifyProducesUsableChannelKeys(t *testing.T) {
	accessoryPub, accessoryPriv, err := GenerateAccessoryIdentity()
	require.NoError(t, err)

	srv := pairing.NewVerifyServer("accessory-1", accessoryPriv, accessoryPub, nil)

	keys, err := RunTransientPairVerify(srv)
	require.NoError(t, err)
	require.NotEqual(t, keys.ReadKey, keys.WriteKey)

	var wire bytes.Buffer
	sender, err := securechannel.NewChannel(nil, &wire, keys.WriteKey[:], keys.ReadKey[:])
	require.NoError(t, err)
	receiver, err := securechannel.NewChannel(&wire, nil, keys.ReadKey[:], keys.WriteKey[:])
	require.NoError(t, err)

	require.NoError(t, sender.WriteFrame([]byte("hello receiver")))
	got, err := receiver.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, "hello receiver", string(got))
}

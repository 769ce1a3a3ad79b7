package pairing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/tlv8"
)

func TestPairSetupM1ReturnsSaltAndPublicKey(t *testing.T) {
	longTermPub, longTermPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)

	srv := NewSetupServer("3939", "accessory-1", longTermPriv, longTermPub)

	m1 := tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M1}},
		{Type: TagMethod, Value: []byte{0}},
	})
	m2Body, err := srv.HandleM1(m1)
	require.NoError(t, err)

	m2Items, err := tlv8.Decode(m2Body)
	require.NoError(t, err)
	salt, ok := tlv8.Get(m2Items, TagSalt)
	require.True(t, ok)
	b, ok := tlv8.Get(m2Items, TagPublicKey)
	require.True(t, ok)
	require.NotEmpty(t, salt)
	require.NotEmpty(t, b)
	require.Equal(t, SetupAwaitingM3, srv.Phase())
}

func TestPairSetupRejectsWrongState(t *testing.T) {
	pub, priv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	srv := NewSetupServer("3939", "accessory-1", priv, pub)

	m3 := tlv8.Encode([]tlv8.Item{{Type: TagState, Value: []byte{M3}}})
	_, err = srv.HandleM3(m3)
	require.Error(t, err)
	_, ok := err.(InvalidStateError)
	require.True(t, ok)
}

func TestPairSetupEmptyPinIsUnavailable(t *testing.T) {
	pub, priv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	srv := NewSetupServer("", "accessory-1", priv, pub)

	m1 := tlv8.Encode([]tlv8.Item{{Type: TagState, Value: []byte{M1}}})
	_, err = srv.HandleM1(m1)
	require.Error(t, err)
	dev, ok := err.(DeviceError)
	require.True(t, ok)
	require.Equal(t, byte(ErrCodeUnavailable), dev.Code)
}

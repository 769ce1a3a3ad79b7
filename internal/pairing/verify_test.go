package pairing

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/tlv8"
)

func TestPairVerifyFullHandshake(t *testing.T) {
	accessoryPub, accessoryPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	controllerPub, controllerPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)

	srv := NewVerifyServer("accessory-1", accessoryPriv, accessoryPub, controllerPub)

	clientKP, err := cryptoutil.GenerateX25519()
	require.NoError(t, err)

	m1 := tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M1}},
		{Type: TagPublicKey, Value: clientKP.Public[:]},
	})
	m2Body, err := srv.HandleM1(m1)
	require.NoError(t, err)
	require.Equal(t, VerifyAwaitingM3, srv.Phase())

	m2Items, err := tlv8.Decode(m2Body)
	require.NoError(t, err)
	serverEphBytes, ok := tlv8.Get(m2Items, TagPublicKey)
	require.True(t, ok)

	var serverEph [32]byte
	copy(serverEph[:], serverEphBytes)
	clientShared, err := clientKP.SharedSecret(serverEph)
	require.NoError(t, err)

	encKey, err := cryptoutil.DeriveKey(clientShared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	require.NoError(t, err)

	signed := append(append([]byte{}, clientKP.Public[:]...), serverEphBytes...)
	sig := ed25519.Sign(controllerPriv, signed)
	inner := tlv8.Encode([]tlv8.Item{
		{Type: TagIdentifier, Value: []byte("controller-1")},
		{Type: TagSignature, Value: sig},
	})
	sealed, err := cryptoutil.SealFixed(encKey, cryptoutil.NonceVerifyMsg03, nil, inner)
	require.NoError(t, err)

	m3 := tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M3}},
		{Type: TagEncryptedData, Value: sealed},
	})
	m4Body, keys, err := srv.HandleM3(m3)
	require.NoError(t, err)
	require.Equal(t, VerifyComplete, srv.Phase())

	m4Items, err := tlv8.Decode(m4Body)
	require.NoError(t, err)
	state, _ := tlv8.GetByte(m4Items, TagState)
	require.Equal(t, byte(M4), state)
	require.NotEqual(t, keys.ReadKey, keys.WriteKey)
}

func TestPairVerifyRejectsBadSignature(t *testing.T) {
	accessoryPub, accessoryPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	controllerPub, _, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)
	_, forgerPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)

	srv := NewVerifyServer("accessory-1", accessoryPriv, accessoryPub, controllerPub)

	clientKP, err := cryptoutil.GenerateX25519()
	require.NoError(t, err)
	m1 := tlv8.Encode([]tlv8.Item{{Type: TagPublicKey, Value: clientKP.Public[:]}})
	m2Body, err := srv.HandleM1(m1)
	require.NoError(t, err)

	m2Items, _ := tlv8.Decode(m2Body)
	serverEphBytes, _ := tlv8.Get(m2Items, TagPublicKey)
	var serverEph [32]byte
	copy(serverEph[:], serverEphBytes)
	clientShared, err := clientKP.SharedSecret(serverEph)
	require.NoError(t, err)
	encKey, err := cryptoutil.DeriveKey(clientShared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	require.NoError(t, err)

	badSig := ed25519.Sign(forgerPriv, []byte("garbage"))
	inner := tlv8.Encode([]tlv8.Item{
		{Type: TagIdentifier, Value: []byte("controller-1")},
		{Type: TagSignature, Value: badSig},
	})
	sealed, err := cryptoutil.SealFixed(encKey, cryptoutil.NonceVerifyMsg03, nil, inner)
	require.NoError(t, err)

	m3 := tlv8.Encode([]tlv8.Item{{Type: TagEncryptedData, Value: sealed}})
	_, _, err = srv.HandleM3(m3)
	require.Error(t, err)
	_, ok := err.(AuthFailure)
	require.True(t, ok)
}

func TestPairVerifyTransientSkipsSignature(t *testing.T) {
	accessoryPub, accessoryPriv, err := cryptoutil.GenerateEd25519()
	require.NoError(t, err)

	srv := NewVerifyServer("accessory-1", accessoryPriv, accessoryPub, nil)

	clientKP, err := cryptoutil.GenerateX25519()
	require.NoError(t, err)
	m1 := tlv8.Encode([]tlv8.Item{{Type: TagPublicKey, Value: clientKP.Public[:]}})
	m2Body, err := srv.HandleTransientM1(m1)
	require.NoError(t, err)

	m2Items, _ := tlv8.Decode(m2Body)
	serverEphBytes, _ := tlv8.Get(m2Items, TagPublicKey)
	var serverEph [32]byte
	copy(serverEph[:], serverEphBytes)
	clientShared, err := clientKP.SharedSecret(serverEph)
	require.NoError(t, err)
	encKey, err := cryptoutil.DeriveKey(clientShared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	require.NoError(t, err)

	sealed, err := cryptoutil.SealZeroNonce(encKey, []byte("controller-1"))
	require.NoError(t, err)

	m3 := tlv8.Encode([]tlv8.Item{{Type: TagEncryptedData, Value: sealed}})
	keys, err := srv.HandleTransientM3(m3)
	require.NoError(t, err)
	require.Equal(t, VerifyComplete, srv.Phase())
	require.NotEqual(t, keys.ReadKey, keys.WriteKey)
}

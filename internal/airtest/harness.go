package airtest

import (
	"crypto/ed25519"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/pairing"
	"github.com/airtunes2/airplay2/internal/tlv8"
)

// RunTransientPairVerify drives a full transient (no-signature) Pair-Verify
// handshake against srv exactly as a real controller would over the
// wire, and returns the derived SessionKeys. It exists so integration
// tests (securechannel, RTSP-over-encrypted-transport) can stand up a
// paired session without reimplementing the TLV8 wire dance themselves.
func RunTransientPairVerify(srv *pairing.VerifyServer) (pairing.SessionKeys, error) {
	clientKP, err := cryptoutil.GenerateX25519()
	if err != nil {
		return pairing.SessionKeys{}, err
	}

	m1 := tlv8.Encode([]tlv8.Item{{Type: pairing.TagPublicKey, Value: clientKP.Public[:]}})
	m2Body, err := srv.HandleTransientM1(m1)
	if err != nil {
		return pairing.SessionKeys{}, err
	}

	m2Items, err := tlv8.Decode(m2Body)
	if err != nil {
		return pairing.SessionKeys{}, err
	}
	serverEphBytes, _ := tlv8.Get(m2Items, pairing.TagPublicKey)
	var serverEph [32]byte
	copy(serverEph[:], serverEphBytes)

	clientShared, err := clientKP.SharedSecret(serverEph)
	if err != nil {
		return pairing.SessionKeys{}, err
	}
	encKey, err := cryptoutil.DeriveKey(clientShared,
		[]byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	if err != nil {
		return pairing.SessionKeys{}, err
	}

	sealed, err := cryptoutil.SealZeroNonce(encKey, []byte("airtest-controller"))
	if err != nil {
		return pairing.SessionKeys{}, err
	}

	m3 := tlv8.Encode([]tlv8.Item{{Type: pairing.TagEncryptedData, Value: sealed}})
	return srv.HandleTransientM3(m3)
}

// GenerateAccessoryIdentity allocates a fresh Ed25519 keypair for a
// simulated accessory under test.
func GenerateAccessoryIdentity() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return cryptoutil.GenerateEd25519()
}

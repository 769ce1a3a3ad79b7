package cryptoutil

import (
	"crypto/ed25519"
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// GenerateEd25519 returns a fresh long-term identity keypair.
func GenerateEd25519() (pub ed25519.PublicKey, priv ed25519.PrivateKey, err error) {
	return ed25519.GenerateKey(rand.Reader)
}

// Ed25519FromSeed reconstructs a keypair from a 32-byte seed, as stored in
// configuration (§6 "Persistent state").
func Ed25519FromSeed(seed []byte) (pub ed25519.PublicKey, priv ed25519.PrivateKey) {
	priv = ed25519.NewKeyFromSeed(seed)
	pub = priv.Public().(ed25519.PublicKey)
	return
}

// X25519KeyPair is an ephemeral Curve25519 keypair used by Pair-Verify M1.
type X25519KeyPair struct {
	Private [32]byte
	Public  [32]byte
}

// GenerateX25519 creates a fresh ephemeral keypair.
func GenerateX25519() (X25519KeyPair, error) {
	var kp X25519KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return kp, err
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return kp, err
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// SharedSecret computes the X25519 ECDH shared secret with peerPublic.
func (kp X25519KeyPair) SharedSecret(peerPublic [32]byte) ([]byte, error) {
	return curve25519.X25519(kp.Private[:], peerPublic[:])
}

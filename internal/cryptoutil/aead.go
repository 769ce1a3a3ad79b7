package cryptoutil

import (
	"golang.org/x/crypto/chacha20poly1305"
)

// SealFixed encrypts plaintext with a ChaCha20-Poly1305 AEAD under key using
// the fixed nonce built from suffix, appending aad (may be nil).
func SealFixed(key []byte, suffix string, aad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := FixedNonce(suffix)
	return aead.Seal(nil, nonce[:], plaintext, aad), nil
}

// OpenFixed reverses SealFixed.
func OpenFixed(key []byte, suffix string, aad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := FixedNonce(suffix)
	return aead.Open(nil, nonce[:], ciphertext, aad)
}

// SealZeroNonce reproduces the transient-pairing quirk documented in
// spec.md §9: both M2 and M3 are encrypted under the all-zero nonce with
// the same key. This is unsafe in general (nonce reuse) but mandated for
// interoperability with AirPlay 2's transient flow; it must not be "fixed".
func SealZeroNonce(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

// OpenZeroNonce reverses SealZeroNonce.
func OpenZeroNonce(key, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	return aead.Open(nil, nonce[:], ciphertext, nil)
}

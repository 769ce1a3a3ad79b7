package cryptoutil

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaChaRTPCipher implements the "encrypted audio variant" of §4.7: packet
// layout is [12-byte RTP header][ciphertext][16-byte tag][8-byte LE nonce
// counter], AAD is the last 8 bytes of the RTP header, and the counter is
// monotonic per session.
type ChaChaRTPCipher struct {
	aead    aeadCipher
	counter uint64
}

type aeadCipher interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// NewChaChaRTPCipher allocates the per-session AEAD.
func NewChaChaRTPCipher(key []byte) (*ChaChaRTPCipher, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &ChaChaRTPCipher{aead: aead}, nil
}

func nonceForCounter(counter uint64) [12]byte {
	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[:8], counter)
	return nonce
}

// EncryptFrame seals payload, using aad (the last 8 header bytes) and the
// current counter, returning ciphertext||tag||counter(LE64) and advancing
// the counter.
func (c *ChaChaRTPCipher) EncryptFrame(aad, payload []byte) []byte {
	nonce := nonceForCounter(c.counter)
	sealed := c.aead.Seal(nil, nonce[:], payload, aad)

	out := make([]byte, len(sealed)+8)
	copy(out, sealed)
	binary.LittleEndian.PutUint64(out[len(sealed):], c.counter)

	c.counter++
	return out
}

// DecryptFrame reverses EncryptFrame; framed must be ciphertext||tag||
// counter(LE64).
func (c *ChaChaRTPCipher) DecryptFrame(aad, framed []byte) ([]byte, error) {
	if len(framed) < 8 {
		return nil, errShortFrame
	}
	counter := binary.LittleEndian.Uint64(framed[len(framed)-8:])
	sealed := framed[:len(framed)-8]
	nonce := nonceForCounter(counter)
	return c.aead.Open(nil, nonce[:], sealed, aad)
}

var errShortFrame = shortFrameError{}

type shortFrameError struct{}

func (shortFrameError) Error() string { return "cryptoutil: chacha rtp frame too short" }

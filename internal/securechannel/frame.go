// Package securechannel frames the encrypted control connection that
// follows a completed Pair-Verify (§4.2): each frame is a 2-byte
// little-endian length prefix, a ChaCha20-Poly1305 ciphertext, and a
// 16-byte authentication tag, with the length prefix itself as additional
// authenticated data and independent nonce counters per direction.
package securechannel

import (
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// MaxFramePlaintext is the largest plaintext payload a single frame may
// carry (§4.2).
const MaxFramePlaintext = 1024

const tagSize = 16

// ErrFrameTooLarge is returned by Write when the plaintext exceeds
// MaxFramePlaintext.
var ErrFrameTooLarge = errors.New("securechannel: frame exceeds max plaintext size")

// ErrDecryptFailed marks a frame whose tag did not verify; per §4.2 this
// is always fatal to the connection, never retried.
var ErrDecryptFailed = errors.New("securechannel: frame authentication failed")

// nonceCounter produces the 12-byte ChaCha20-Poly1305 nonces for one
// direction of a channel: 4 zero bytes followed by a little-endian
// 64-bit counter, incremented once per frame.
type nonceCounter struct {
	counter uint64
}

func (n *nonceCounter) next() [12]byte {
	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[4:], n.counter)
	n.counter++
	return nonce
}

// Channel wraps a raw net.Conn-like stream with the encrypted frame
// layer, using independent keys and counters for each direction.
type Channel struct {
	r io.Reader
	w io.Writer

	readAEAD  cipher.AEAD
	writeAEAD cipher.AEAD
	readNonce nonceCounter
	writeN    nonceCounter
}

// NewChannel builds a Channel over rw using the SessionKeys derived by
// Pair-Verify. readKey decrypts frames arriving on r; writeKey encrypts
// frames sent on w.
func NewChannel(r io.Reader, w io.Writer, readKey, writeKey []byte) (*Channel, error) {
	readAEAD, err := chacha20poly1305.New(readKey)
	if err != nil {
		return nil, err
	}
	writeAEAD, err := chacha20poly1305.New(writeKey)
	if err != nil {
		return nil, err
	}
	return &Channel{r: r, w: w, readAEAD: readAEAD, writeAEAD: writeAEAD}, nil
}

// WriteFrame encrypts and sends one frame. plaintext must be at most
// MaxFramePlaintext bytes.
func (c *Channel) WriteFrame(plaintext []byte) error {
	if len(plaintext) > MaxFramePlaintext {
		return ErrFrameTooLarge
	}

	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(plaintext)))

	nonce := c.writeN.next()
	sealed := c.writeAEAD.Seal(nil, nonce[:], plaintext, lenBuf[:])

	if _, err := c.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := c.w.Write(sealed)
	return err
}

// ReadFrame reads and decrypts one frame. A failed tag check is fatal:
// callers must close the underlying connection and not call ReadFrame
// again.
func (c *Channel) ReadFrame() ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(c.r, lenBuf[:]); err != nil {
		return nil, err
	}
	plaintextLen := binary.LittleEndian.Uint16(lenBuf[:])
	if int(plaintextLen) > MaxFramePlaintext {
		return nil, ErrDecryptFailed
	}

	ciphertext := make([]byte, int(plaintextLen)+tagSize)
	if _, err := io.ReadFull(c.r, ciphertext); err != nil {
		return nil, err
	}

	nonce := c.readNonce.next()
	plaintext, err := c.readAEAD.Open(nil, nonce[:], ciphertext, lenBuf[:])
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

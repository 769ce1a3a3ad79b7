package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
)

// CBCEncryptPacket encrypts payload with AES-128-CBC under key and iv. Per
// §4.7, the IV does NOT chain between packets: callers must pass the same
// session iv every time. Any trailing bytes that don't fill a full 16-byte
// block are appended unencrypted.
func CBCEncryptPacket(key, iv, payload []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	fullBlocks := len(payload) - (len(payload) % aes.BlockSize)
	out := make([]byte, len(payload))

	if fullBlocks > 0 {
		mode := cipher.NewCBCEncrypter(block, iv)
		mode.CryptBlocks(out[:fullBlocks], payload[:fullBlocks])
	}
	copy(out[fullBlocks:], payload[fullBlocks:])
	return out, nil
}

// CBCDecryptPacket reverses CBCEncryptPacket.
func CBCDecryptPacket(key, iv, payload []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	fullBlocks := len(payload) - (len(payload) % aes.BlockSize)
	out := make([]byte, len(payload))

	if fullBlocks > 0 {
		mode := cipher.NewCBCDecrypter(block, iv)
		mode.CryptBlocks(out[:fullBlocks], payload[:fullBlocks])
	}
	copy(out[fullBlocks:], payload[fullBlocks:])
	return out, nil
}

// CTRCipher wraps a single AES-128-CTR keystream that spans an entire
// session. §4.7/§9 are explicit: constructing a new cipher per packet
// reuses the keystream and breaks confidentiality. Callers must hold one
// CTRCipher per direction for the session's lifetime and Seek before each
// packet instead of reallocating.
type CTRCipher struct {
	block cipher.Block
	iv    []byte
	pos   uint64
}

// NewCTRCipher allocates the session-long keystream generator.
func NewCTRCipher(key, iv []byte) (*CTRCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	ivCopy := append([]byte(nil), iv...)
	return &CTRCipher{block: block, iv: ivCopy}, nil
}

// counterIVAt returns the CTR counter block for byte offset off.
func (c *CTRCipher) counterIVAt(off uint64) []byte {
	iv := append([]byte(nil), c.iv...)
	// advance the big-endian 128-bit counter encoded in iv by off/16 blocks;
	// CTR mode addresses a keystream byte at position off by block off/16
	// and consumes off%16 bytes of that block, which cipher.NewCTR does not
	// expose directly, so seeking re-derives the counter block by addition.
	blocks := off / aes.BlockSize
	carry := blocks
	for i := len(iv) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(iv[i]) + carry
		iv[i] = byte(sum)
		carry = sum >> 8
	}
	return iv
}

// Seek positions the keystream at byte offset off, per §4.7's
// `seek(rtp_timestamp * bytes_per_frame)` requirement.
func (c *CTRCipher) Seek(off uint64) {
	c.pos = off
}

// XORKeyStream encrypts or decrypts (CTR is symmetric) src into dst,
// advancing the session-long keystream position.
func (c *CTRCipher) XORKeyStream(dst, src []byte) {
	blockOff := c.pos % aes.BlockSize
	streamStart := c.pos - blockOff

	stream := cipher.NewCTR(c.block, c.counterIVAt(streamStart))
	if blockOff > 0 {
		discard := make([]byte, blockOff)
		stream.XORKeyStream(discard, discard)
	}
	stream.XORKeyStream(dst, src)
	c.pos += uint64(len(src))
}

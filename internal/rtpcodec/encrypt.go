package rtpcodec

import (
	"github.com/airtunes2/airplay2/internal/cryptoutil"
)

// EncryptionMode selects one of the three coexisting AirPlay audio
// encryption schemes (§4.7).
type EncryptionMode int

// Modes.
const (
	EncryptionNone EncryptionMode = iota
	EncryptionCBC                 // AES-128-CBC, RAOP legacy
	EncryptionCTR                 // AES-128-CTR, AirPlay 2 audio
	EncryptionChaCha               // ChaCha20-Poly1305, encrypted audio variant
)

// bytesPerFrame is the stereo 16-bit PCM frame size the CTR keystream
// offset is seeded from (§4.7: "rtp_timestamp × 4 bytes").
const bytesPerFrame = 4

// Cipher applies one of the three encryption modes to RTP payloads. CBC
// uses key/iv, CTR keeps its session-long keystream in ctr, and ChaCha
// wraps its own AEAD in chacha; for CBC both ctr and chacha are nil.
type Cipher struct {
	Mode EncryptionMode

	key []byte
	iv  []byte

	ctr    *cryptoutil.CTRCipher
	chacha *cryptoutil.ChaChaRTPCipher
}

// NewCBCCipher builds a Cipher for the legacy RAOP mode: key/iv are
// reused, unchained, for every packet.
func NewCBCCipher(key, iv []byte) *Cipher {
	return &Cipher{Mode: EncryptionCBC, key: key, iv: iv}
}

// NewCTRCipher builds a Cipher backed by one session-long CTR
// keystream (§4.7/§9): callers must use this Cipher for the whole
// session rather than constructing a fresh one per packet.
func NewCTRCipher(key, iv []byte) (*Cipher, error) {
	ctr, err := cryptoutil.NewCTRCipher(key, iv)
	if err != nil {
		return nil, err
	}
	return &Cipher{Mode: EncryptionCTR, ctr: ctr}, nil
}

// NewChaChaCipher builds a Cipher for the ChaCha20-Poly1305 variant.
func NewChaChaCipher(key []byte) (*Cipher, error) {
	c, err := cryptoutil.NewChaChaRTPCipher(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{Mode: EncryptionChaCha, chacha: c}, nil
}

// EncryptPayload encrypts payload in place for the packet at the given
// RTP timestamp, using headerLast8 (the RTP header's timestamp+ssrc
// bytes) as ChaCha's AAD when applicable.
func (c *Cipher) EncryptPayload(rtpTimestamp uint32, headerLast8, payload []byte) ([]byte, error) {
	switch c.Mode {
	case EncryptionNone:
		return payload, nil
	case EncryptionCBC:
		return cryptoutil.CBCEncryptPacket(c.key, c.iv, payload)
	case EncryptionCTR:
		c.ctr.Seek(uint64(rtpTimestamp) * bytesPerFrame)
		out := make([]byte, len(payload))
		c.ctr.XORKeyStream(out, payload)
		return out, nil
	case EncryptionChaCha:
		return c.chacha.EncryptFrame(headerLast8, payload), nil
	default:
		return payload, nil
	}
}

// DecryptPayload reverses EncryptPayload.
func (c *Cipher) DecryptPayload(rtpTimestamp uint32, headerLast8, payload []byte) ([]byte, error) {
	switch c.Mode {
	case EncryptionNone:
		return payload, nil
	case EncryptionCBC:
		return cryptoutil.CBCDecryptPacket(c.key, c.iv, payload)
	case EncryptionCTR:
		c.ctr.Seek(uint64(rtpTimestamp) * bytesPerFrame)
		out := make([]byte, len(payload))
		c.ctr.XORKeyStream(out, payload)
		return out, nil
	case EncryptionChaCha:
		return c.chacha.DecryptFrame(headerLast8, payload)
	default:
		return payload, nil
	}
}

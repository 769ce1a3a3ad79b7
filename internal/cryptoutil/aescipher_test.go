package cryptoutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCTRKeystreamAdvancesBetweenPackets(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	iv := bytes.Repeat([]byte{0x22}, 16)

	enc, err := NewCTRCipher(key, iv)
	require.NoError(t, err)

	plaintext := bytes.Repeat([]byte{0xAA}, 1408)

	enc.Seek(0)
	out1 := make([]byte, len(plaintext))
	enc.XORKeyStream(out1, plaintext)

	enc.Seek(uint64(len(plaintext)))
	out2 := make([]byte, len(plaintext))
	enc.XORKeyStream(out2, plaintext)

	require.NotEqual(t, out1, out2)

	diffCount := 0
	for i := range out1 {
		if out1[i] != out2[i] {
			diffCount++
		}
	}
	require.Greater(t, diffCount, len(out1)/2)
}

func TestCTRSeekIsRandomAccessAndReversible(t *testing.T) {
	key := bytes.Repeat([]byte{0x33}, 16)
	iv := bytes.Repeat([]byte{0x44}, 16)

	plaintext := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 100) // 400 bytes

	enc, err := NewCTRCipher(key, iv)
	require.NoError(t, err)
	enc.Seek(160) // rtp_timestamp=40 * 4 bytes/frame
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)

	dec, err := NewCTRCipher(key, iv)
	require.NoError(t, err)
	dec.Seek(160)
	recovered := make([]byte, len(ciphertext))
	dec.XORKeyStream(recovered, ciphertext)

	require.Equal(t, plaintext, recovered)
}

func TestCBCRoundTripWithTrailingBytes(t *testing.T) {
	key := bytes.Repeat([]byte{0x55}, 16)
	iv := bytes.Repeat([]byte{0x66}, 16)
	payload := append(bytes.Repeat([]byte{0x77}, 32), 0x01, 0x02, 0x03)

	enc, err := CBCEncryptPacket(key, iv, payload)
	require.NoError(t, err)
	require.Equal(t, payload[32:], enc[32:]) // trailing unencrypted

	dec, err := CBCDecryptPacket(key, iv, enc)
	require.NoError(t, err)
	require.Equal(t, payload, dec)
}

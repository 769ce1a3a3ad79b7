package cryptoutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // RSA-OAEP-SHA1 is the fixed AirPlay wire format, not a choice
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// ErrNotRSAKey is returned when a PEM block decodes to a key type other
// than RSA.
var ErrNotRSAKey = errors.New("cryptoutil: not an RSA private key")

// UnwrapAESKey recovers the 16-byte AES key from an ANNOUNCE body's
// rsaaeskey field by RSA-OAEP-SHA1 decrypting it with the receiver's
// device-bound private key (§6 "External interfaces").
func UnwrapAESKey(priv *rsa.PrivateKey, rsaaeskey []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, rsaaeskey, nil) //nolint:gosec
}

// GenerateRSAKey creates a fresh 2048-bit device RSA key pair, used once
// at first run to seed persistent device identity (§6 "Persistent
// state").
func GenerateRSAKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, 2048)
}

// ParseRSAPrivateKeyPEM decodes a PKCS#1 or PKCS#8 PEM-encoded RSA
// private key, as loaded from the configured device key file.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("cryptoutil: no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSAKey
	}
	return rsaKey, nil
}

// EncodeRSAPrivateKeyPEM serializes priv as a PKCS#1 PEM block, for
// writing out a freshly generated device key.
func EncodeRSAPrivateKeyPEM(priv *rsa.PrivateKey) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(priv),
	})
}

// appleChallengeBlockSize is the legacy RAOP Apple-Challenge digest
// size: the 16-byte challenge, the receiver's IP, and a 6-byte
// identifier, zero-padded up to this length before signing.
const appleChallengeBlockSize = 32

// SignAppleChallenge answers OPTIONS's Apple-Challenge header (§6): the
// challenge bytes, ip, and a 6-byte device identifier are concatenated,
// zero-padded to 32 bytes, and signed with the device RSA key using raw
// (unhashed) PKCS#1 v1.5 padding, matching the legacy AirPlay handshake.
func SignAppleChallenge(priv *rsa.PrivateKey, challenge, ip, deviceID []byte) ([]byte, error) {
	block := make([]byte, 0, appleChallengeBlockSize)
	block = append(block, challenge...)
	block = append(block, ip...)
	block = append(block, deviceID...)
	if len(block) < appleChallengeBlockSize {
		block = append(block, make([]byte, appleChallengeBlockSize-len(block))...)
	}
	return rsa.SignPKCS1v15(rand.Reader, priv, 0, block)
}

package cryptoutil

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey runs HKDF-SHA512 over secret with the given salt/info and
// returns size bytes, as used throughout Pair-Setup/Pair-Verify (§4.1) and
// the secure channel (§4.2).
func DeriveKey(secret, salt, info []byte, size int) ([]byte, error) {
	r := hkdf.New(sha512.New, secret, salt, info)
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pairing-specific salt/info strings, verbatim per §4.1.
const (
	PairSetupEncryptSalt = "Pair-Setup-Encrypt-Salt"
	PairSetupEncryptInfo = "Pair-Setup-Encrypt-Info"

	PairSetupAccessorySignSalt   = "Pair-Setup-Accessory-Sign-Salt"
	PairSetupAccessorySignInfo   = "Pair-Setup-Accessory-Sign-Info"
	PairSetupControllerSignSalt = "Pair-Setup-Controller-Sign-Salt"
	PairSetupControllerSignInfo = "Pair-Setup-Controller-Sign-Info"

	PairVerifyEncryptSalt = "Pair-Verify-Encrypt-Salt"
	PairVerifyEncryptInfo = "Pair-Verify-Encrypt-Info"

	ControlSalt            = "Control-Salt"
	ControlReadEncryptInfo = "Control-Read-Encryption-Key"
	ControlWriteEncryptInfo = "Control-Write-Encryption-Key"

	// AudioSalt/AudioWriteEncryptInfo derive the ChaCha20-Poly1305 key
	// used to encrypt RTP audio payloads (§4.7 "AirPlay 2" mode), from
	// the same Pair-Verify shared secret as the control channel's keys.
	AudioSalt            = "Events-Salt"
	AudioWriteEncryptInfo = "Events-Write-Encryption-Key"
)

// Nonce suffixes, verbatim per §4.1. The full 12-byte AEAD nonce is 4 zero
// bytes followed by these 8 ASCII bytes, except where §9 calls for an
// all-zero nonce (transient pairing).
const (
	NonceSetupMsg05 = "PS-Msg05"
	NonceSetupMsg06 = "PS-Msg06"
	NonceVerifyMsg02 = "PV-Msg02"
	NonceVerifyMsg03 = "PV-Msg03"
)

// FixedNonce builds the 12-byte ChaCha20-Poly1305 nonce used by the
// pairing handshakes: 4 zero bytes followed by an 8-byte ASCII suffix.
func FixedNonce(suffix string) [12]byte {
	var n [12]byte
	copy(n[4:], suffix)
	return n
}

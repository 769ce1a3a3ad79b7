// Package pairing implements the HomeKit-derived Pair-Setup and Pair-Verify
// state machines (§4.1): SRP-6a password pairing, Ed25519 identity
// exchange, and X25519 session-key derivation, framed as TLV8 over HTTP
// bodies on the control TCP stream.
package pairing

import "crypto/ed25519"

// TLV8 type tags used by both Pair-Setup and Pair-Verify (§4.1).
const (
	TagMethod     = 0x00
	TagIdentifier = 0x01
	TagSalt       = 0x02
	TagPublicKey  = 0x03
	TagProof      = 0x04
	TagEncryptedData = 0x05
	TagState      = 0x06
	TagError      = 0x07
	TagSignature  = 0x0A
)

// State values carried in TagState.
const (
	M1 = 1
	M2 = 2
	M3 = 3
	M4 = 4
	M5 = 5
	M6 = 6
)

// Device error codes (TagError values), per §4.1.
const (
	ErrCodeUnknown         = 1
	ErrCodeAuthentication  = 2
	ErrCodeBackoff         = 3
	ErrCodeMaxPeers        = 4
	ErrCodeMaxTries        = 5
	ErrCodeUnavailable     = 6
	ErrCodeBusy            = 7
)

// PairingKeys is the long-term identity of a paired peer (§3).
type PairingKeys struct {
	AccessoryID     string
	PrivateKey      ed25519.PrivateKey
	PublicKey       ed25519.PublicKey
	PeerIdentifier  string
	PeerPublicKey   ed25519.PublicKey
}

// SessionKeys is the ephemeral channel material derived once Pair-Verify
// completes (§3). Nonce counters live in securechannel, not here.
type SessionKeys struct {
	ReadKey  [32]byte
	WriteKey [32]byte
}

package pairing

import (
	"crypto/ed25519"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/tlv8"
)

// VerifyPhase is the Pair-Verify state machine's current step.
type VerifyPhase int

// Phases, mirroring the M-numbers of §4.1's Pair-Verify flow.
const (
	VerifyAwaitingM1 VerifyPhase = iota
	VerifyAwaitingM3
	VerifyComplete
	VerifyFailed
)

// VerifyServer runs the accessory side of Pair-Verify, which establishes a
// fresh X25519 session on top of an already-completed Pair-Setup identity.
type VerifyServer struct {
	phase VerifyPhase

	deviceID     string
	longTermPriv ed25519.PrivateKey
	longTermPub  ed25519.PublicKey

	knownPeer ed25519.PublicKey // the Pair-Setup peer's long-term key, or nil for transient

	ephemeral cryptoutil.X25519KeyPair
	peerEph   []byte
	shared    []byte
	readKey   []byte
	writeKey  []byte
}

// NewVerifyServer starts a Pair-Verify exchange against a previously paired
// peer (knownPeer). Pass nil for the AirPlay "transient pairing" mode
// (§9), which skips signature verification entirely.
func NewVerifyServer(deviceID string, longTermPriv ed25519.PrivateKey, longTermPub ed25519.PublicKey, knownPeer ed25519.PublicKey) *VerifyServer {
	return &VerifyServer{
		phase:        VerifyAwaitingM1,
		deviceID:     deviceID,
		longTermPriv: longTermPriv,
		longTermPub:  longTermPub,
		knownPeer:    knownPeer,
	}
}

// HandleM1 processes {State=1, PublicKey=clientEphemeralX25519} and returns
// M2: {State=2, PublicKey=serverEphemeral, EncryptedData=Enc(sig)}.
func (v *VerifyServer) HandleM1(body []byte) ([]byte, error) {
	if v.phase != VerifyAwaitingM1 {
		return v.errorTLV(), InvalidStateError{Expected: M1, Got: int(v.phase) + 1}
	}

	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, err
	}
	peerEph, ok := tlv8.Get(items, TagPublicKey)
	if !ok {
		return v.errorTLV(), AuthFailure{Reason: "missing M1 public key"}
	}
	v.peerEph = append([]byte(nil), peerEph...)

	kp, err := cryptoutil.GenerateX25519()
	if err != nil {
		return nil, err
	}
	v.ephemeral = kp

	var peerEphFixed [32]byte
	copy(peerEphFixed[:], v.peerEph)
	shared, err := kp.SharedSecret(peerEphFixed)
	if err != nil {
		v.phase = VerifyFailed
		return v.errorTLV(), AuthFailure{Reason: "X25519 agreement failed"}
	}
	v.shared = shared

	encKey, err := cryptoutil.DeriveKey(shared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	if err != nil {
		return nil, err
	}

	signed := append(append([]byte{}, kp.Public[:]...), v.peerEph...)
	sig := ed25519.Sign(v.longTermPriv, signed)

	inner := tlv8.Encode([]tlv8.Item{
		{Type: TagIdentifier, Value: []byte(v.deviceID)},
		{Type: TagSignature, Value: sig},
	})

	sealed, err := cryptoutil.SealFixed(encKey, cryptoutil.NonceVerifyMsg02, nil, inner)
	if err != nil {
		return nil, err
	}

	v.phase = VerifyAwaitingM3
	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M2}},
		{Type: TagPublicKey, Value: kp.Public[:]},
		{Type: TagEncryptedData, Value: sealed},
	}), nil
}

// HandleM3 processes {State=3, EncryptedData=Enc(identifier, signature)}
// and, once the controller's signature is verified, returns M4 ({State=4}).
func (v *VerifyServer) HandleM3(body []byte) ([]byte, SessionKeys, error) {
	var empty SessionKeys
	if v.phase != VerifyAwaitingM3 {
		return v.errorTLV(), empty, InvalidStateError{Expected: M3, Got: int(v.phase) + 1}
	}

	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, empty, err
	}
	encrypted, _ := tlv8.Get(items, TagEncryptedData)

	encKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	if err != nil {
		return nil, empty, err
	}

	inner, err := cryptoutil.OpenFixed(encKey, cryptoutil.NonceVerifyMsg03, nil, encrypted)
	if err != nil {
		v.phase = VerifyFailed
		return v.errorTLV(), empty, AuthFailure{Reason: "M3 decrypt failed"}
	}

	innerItems, err := tlv8.Decode(inner)
	if err != nil {
		return nil, empty, err
	}
	identifier, _ := tlv8.Get(innerItems, TagIdentifier)
	signature, _ := tlv8.Get(innerItems, TagSignature)

	if v.knownPeer != nil {
		signed := append(append([]byte{}, v.peerEph...), v.ephemeral.Public[:]...)
		if !ed25519.Verify(v.knownPeer, signed, signature) {
			v.phase = VerifyFailed
			return v.errorTLV(), empty, AuthFailure{Reason: "bad M3 signature"}
		}
	}
	_ = identifier

	readKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.ControlSalt), []byte(cryptoutil.ControlReadEncryptInfo), 32)
	if err != nil {
		return nil, empty, err
	}
	writeKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.ControlSalt), []byte(cryptoutil.ControlWriteEncryptInfo), 32)
	if err != nil {
		return nil, empty, err
	}
	v.readKey, v.writeKey = readKey, writeKey

	v.phase = VerifyComplete

	var keys SessionKeys
	copy(keys.ReadKey[:], readKey)
	copy(keys.WriteKey[:], writeKey)

	out := tlv8.Encode([]tlv8.Item{{Type: TagState, Value: []byte{M4}}})
	return out, keys, nil
}

// HandleTransientM1 runs the abbreviated "transient pairing" flow of §9: no
// long-term signature exchange, both directions of M2/M3 encrypted under a
// zero nonce with the same derived key. Returns M2's ciphertext.
func (v *VerifyServer) HandleTransientM1(body []byte) ([]byte, error) {
	if v.phase != VerifyAwaitingM1 {
		return v.errorTLV(), InvalidStateError{Expected: M1, Got: int(v.phase) + 1}
	}
	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, err
	}
	peerEph, ok := tlv8.Get(items, TagPublicKey)
	if !ok {
		return v.errorTLV(), AuthFailure{Reason: "missing M1 public key"}
	}
	v.peerEph = append([]byte(nil), peerEph...)

	kp, err := cryptoutil.GenerateX25519()
	if err != nil {
		return nil, err
	}
	v.ephemeral = kp

	var peerEphFixed [32]byte
	copy(peerEphFixed[:], v.peerEph)
	shared, err := kp.SharedSecret(peerEphFixed)
	if err != nil {
		v.phase = VerifyFailed
		return v.errorTLV(), err
	}
	v.shared = shared

	encKey, err := cryptoutil.DeriveKey(shared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	if err != nil {
		return nil, err
	}

	sealed, err := cryptoutil.SealZeroNonce(encKey, []byte(v.deviceID))
	if err != nil {
		return nil, err
	}

	v.phase = VerifyAwaitingM3
	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M2}},
		{Type: TagPublicKey, Value: kp.Public[:]},
		{Type: TagEncryptedData, Value: sealed},
	}), nil
}

// HandleTransientM3 completes the transient flow, deriving SessionKeys
// without any signature check.
func (v *VerifyServer) HandleTransientM3(body []byte) (SessionKeys, error) {
	var empty SessionKeys
	if v.phase != VerifyAwaitingM3 {
		return empty, InvalidStateError{Expected: M3, Got: int(v.phase) + 1}
	}
	items, err := tlv8.Decode(body)
	if err != nil {
		return empty, err
	}
	encrypted, _ := tlv8.Get(items, TagEncryptedData)

	encKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.PairVerifyEncryptSalt), []byte(cryptoutil.PairVerifyEncryptInfo), 32)
	if err != nil {
		return empty, err
	}
	if _, err := cryptoutil.OpenZeroNonce(encKey, encrypted); err != nil {
		v.phase = VerifyFailed
		return empty, AuthFailure{Reason: "transient M3 decrypt failed"}
	}

	readKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.ControlSalt), []byte(cryptoutil.ControlReadEncryptInfo), 32)
	if err != nil {
		return empty, err
	}
	writeKey, err := cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.ControlSalt), []byte(cryptoutil.ControlWriteEncryptInfo), 32)
	if err != nil {
		return empty, err
	}

	v.phase = VerifyComplete
	var keys SessionKeys
	copy(keys.ReadKey[:], readKey)
	copy(keys.WriteKey[:], writeKey)
	return keys, nil
}

func (v *VerifyServer) errorTLV() []byte {
	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{byte(v.phase) + 1}},
		{Type: TagError, Value: []byte{ErrCodeAuthentication}},
	})
}

// Phase returns the current step, for tests and logging.
func (v *VerifyServer) Phase() VerifyPhase { return v.phase }

// AudioKey derives the ChaCha20-Poly1305 audio-encryption key from the
// same shared secret as the control channel's keys, for SETUP sessions
// that don't carry their own rsaaeskey/aesiv (§4.7 "AirPlay 2" mode).
// Only valid once the handshake has reached VerifyComplete.
func (v *VerifyServer) AudioKey() ([]byte, error) {
	return cryptoutil.DeriveKey(v.shared, []byte(cryptoutil.AudioSalt), []byte(cryptoutil.AudioWriteEncryptInfo), 32)
}

package pairing

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/tlv8"
)

// SetupPhase is the Pair-Setup state machine's current step.
type SetupPhase int

// Phases, mirroring the M-numbers of §4.1.
const (
	SetupAwaitingM1 SetupPhase = iota
	SetupAwaitingM3
	SetupAwaitingM5
	SetupComplete
	SetupFailed
)

// SetupServer runs the accessory (server) side of Pair-Setup.
type SetupServer struct {
	phase SetupPhase

	pin          string
	deviceID     string
	longTermPriv ed25519.PrivateKey
	longTermPub  ed25519.PublicKey

	srp *cryptoutil.SRPServer

	peerIdentifier string
	peerPublicKey  ed25519.PublicKey
}

// NewSetupServer starts a fresh Pair-Setup exchange. pin is the accessory's
// current setup code; deviceID/longTerm* are the accessory's identity
// (§3 PairingKeys, minus the peer fields which are filled in on success).
func NewSetupServer(pin, deviceID string, longTermPriv ed25519.PrivateKey, longTermPub ed25519.PublicKey) *SetupServer {
	return &SetupServer{phase: SetupAwaitingM1, pin: pin, deviceID: deviceID, longTermPriv: longTermPriv, longTermPub: longTermPub}
}

// HandleM1 processes the client's M1 {State=1, Method=0} and returns the
// M2 TLV8 response {State=2, Salt, PublicKey} or a device Error TLV.
func (s *SetupServer) HandleM1(body []byte) ([]byte, error) {
	if s.phase != SetupAwaitingM1 {
		return s.errorTLV(ErrCodeUnknown), InvalidStateError{Expected: M1, Got: int(s.phase) + 1}
	}

	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, err
	}
	state, _ := tlv8.GetByte(items, TagState)
	if state != M1 {
		return s.errorTLV(ErrCodeUnknown), InvalidStateError{Expected: M1, Got: int(state)}
	}

	if s.pin == "" {
		s.phase = SetupFailed
		return s.errorTLV(ErrCodeUnavailable), DeviceError{Code: ErrCodeUnavailable}
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	verifier := cryptoutil.SRPVerifier(salt, "Pair-Setup", s.pin)

	srv, err := cryptoutil.NewSRPServer(salt, "Pair-Setup", verifier)
	if err != nil {
		return nil, err
	}
	s.srp = srv
	s.phase = SetupAwaitingM3

	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M2}},
		{Type: TagSalt, Value: salt},
		{Type: TagPublicKey, Value: srv.PublicKey()},
	}), nil
}

// HandleM3 processes {State=3, PublicKey=A, Proof=M1} and returns M4
// {State=4, Proof=M2} or a device Error TLV.
func (s *SetupServer) HandleM3(body []byte) ([]byte, error) {
	if s.phase != SetupAwaitingM3 {
		return s.errorTLV(ErrCodeUnknown), InvalidStateError{Expected: M3, Got: int(s.phase) + 1}
	}

	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, err
	}
	a, _ := tlv8.Get(items, TagPublicKey)
	proof, _ := tlv8.Get(items, TagProof)

	if err := s.srp.ComputeSessionKey(a); err != nil {
		s.phase = SetupFailed
		return s.errorTLV(ErrCodeAuthentication), AuthFailure{Reason: err.Error()}
	}

	m2, err := s.srp.VerifyM1(proof)
	if err != nil {
		s.phase = SetupFailed
		return s.errorTLV(ErrCodeAuthentication), AuthFailure{Reason: "bad SRP proof"}
	}

	s.phase = SetupAwaitingM5
	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M4}},
		{Type: TagProof, Value: m2},
	}), nil
}

// HandleM5 processes the AEAD-encrypted inner TLV carrying the
// controller's identifier/public-key/signature, verifies it, and returns
// M6 carrying the accessory's own signed identity.
func (s *SetupServer) HandleM5(body []byte) ([]byte, PairingKeys, error) {
	var empty PairingKeys
	if s.phase != SetupAwaitingM5 {
		return s.errorTLV(ErrCodeUnknown), empty, InvalidStateError{Expected: M5, Got: int(s.phase) + 1}
	}

	items, err := tlv8.Decode(body)
	if err != nil {
		return nil, empty, err
	}
	encrypted, _ := tlv8.Get(items, TagEncryptedData)

	sessionKey, encKey, err := s.deriveEncryptKey()
	if err != nil {
		return nil, empty, err
	}
	_ = sessionKey

	inner, err := cryptoutil.OpenFixed(encKey, cryptoutil.NonceSetupMsg05, nil, encrypted)
	if err != nil {
		s.phase = SetupFailed
		return s.errorTLV(ErrCodeAuthentication), empty, AuthFailure{Reason: "M5 decrypt failed"}
	}

	innerItems, err := tlv8.Decode(inner)
	if err != nil {
		return nil, empty, err
	}
	identifier, _ := tlv8.Get(innerItems, TagIdentifier)
	peerPub, _ := tlv8.Get(innerItems, TagPublicKey)
	signature, _ := tlv8.Get(innerItems, TagSignature)

	controllerSignKey, err := cryptoutil.DeriveKey(s.srp.SessionKey(),
		[]byte(cryptoutil.PairSetupControllerSignSalt), []byte(cryptoutil.PairSetupControllerSignInfo), 32)
	if err != nil {
		return nil, empty, err
	}

	signed := append(append(append([]byte{}, controllerSignKey...), identifier...), peerPub...)
	if !ed25519.Verify(ed25519.PublicKey(peerPub), signed, signature) {
		s.phase = SetupFailed
		return s.errorTLV(ErrCodeAuthentication), empty, AuthFailure{Reason: "bad M5 signature"}
	}

	s.peerIdentifier = string(identifier)
	s.peerPublicKey = append(ed25519.PublicKey(nil), peerPub...)

	accessorySignKey, err := cryptoutil.DeriveKey(s.srp.SessionKey(),
		[]byte(cryptoutil.PairSetupAccessorySignSalt), []byte(cryptoutil.PairSetupAccessorySignInfo), 32)
	if err != nil {
		return nil, empty, err
	}
	accessorySigned := append(append(append([]byte{}, accessorySignKey...), []byte(s.deviceID)...), s.longTermPub...)
	accessorySig := ed25519.Sign(s.longTermPriv, accessorySigned)

	innerOut := tlv8.Encode([]tlv8.Item{
		{Type: TagIdentifier, Value: []byte(s.deviceID)},
		{Type: TagPublicKey, Value: s.longTermPub},
		{Type: TagSignature, Value: accessorySig},
	})

	sealed, err := cryptoutil.SealFixed(encKey, cryptoutil.NonceSetupMsg06, nil, innerOut)
	if err != nil {
		return nil, empty, err
	}

	s.phase = SetupComplete

	keys := PairingKeys{
		AccessoryID:    s.deviceID,
		PrivateKey:     s.longTermPriv,
		PublicKey:      s.longTermPub,
		PeerIdentifier: s.peerIdentifier,
		PeerPublicKey:  s.peerPublicKey,
	}

	out := tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{M6}},
		{Type: TagEncryptedData, Value: sealed},
	})
	return out, keys, nil
}

func (s *SetupServer) deriveEncryptKey() (sessionKey, encKey []byte, err error) {
	sessionKey = s.srp.SessionKey()
	encKey, err = cryptoutil.DeriveKey(sessionKey, []byte(cryptoutil.PairSetupEncryptSalt), []byte(cryptoutil.PairSetupEncryptInfo), 32)
	return
}

func (s *SetupServer) errorTLV(code byte) []byte {
	return tlv8.Encode([]tlv8.Item{
		{Type: TagState, Value: []byte{byte(s.phase) + 1}},
		{Type: TagError, Value: []byte{code}},
	})
}

// Phase returns the current step, for tests and logging.
func (s *SetupServer) Phase() SetupPhase { return s.phase }

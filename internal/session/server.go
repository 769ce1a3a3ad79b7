package session

import (
	"net"

	"github.com/airtunes2/airplay2/internal/sdp"
)

// ReceiverSession is the server-side session state (§3
// "ReceiverSession"): the RTSP-visible half of a connected AirPlay
// sender.
type ReceiverSession struct {
	State     State
	SessionID string
	PeerAddr  net.Addr

	Ports PortTriple

	VolumeDB float64 // clamped [-144, 0]

	Stream sdp.StreamParameters

	Paired bool // gates the 470 "requires auth" endpoints
}

// NewReceiverSession builds a fresh server-side session for a just-accepted
// control connection.
func NewReceiverSession(peerAddr net.Addr) (*ReceiverSession, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}
	return &ReceiverSession{State: Init, SessionID: id, PeerAddr: peerAddr}, nil
}

// SetVolume clamps and stores a volume in dB (§4.11).
func (s *ReceiverSession) SetVolume(db float64) {
	if db < -144 {
		db = -144
	}
	if db > 0 {
		db = 0
	}
	s.VolumeDB = db
}

// RequiresAuth reports whether the session must answer 470 for an
// auth-gated endpoint (§4.4).
func (s *ReceiverSession) RequiresAuth() bool {
	return !s.Paired
}

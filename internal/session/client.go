package session

// RtspSession is the client-side session state (§3 "RtspSession"): it
// exclusively owns its CSeq counter, state, and session ID.
type RtspSession struct {
	State       State
	CSeq        uint32
	ServerSessionID string // set from the Session header of any response that carries one
	DeviceID    string
	SessionID   string
	BaseURI     string
}

// NewRtspSession builds a client session with freshly random 16-hex-char
// device/session IDs (§3).
func NewRtspSession(baseURI string) (*RtspSession, error) {
	deviceID, err := randomHexID(8)
	if err != nil {
		return nil, err
	}
	sessionID, err := randomHexID(8)
	if err != nil {
		return nil, err
	}
	return &RtspSession{State: Init, DeviceID: deviceID, SessionID: sessionID, BaseURI: baseURI}, nil
}

// NextCSeq increments and returns the CSeq to attach to the next
// request; invariant: strictly increasing within a session.
func (s *RtspSession) NextCSeq() uint32 {
	s.CSeq++
	return s.CSeq
}

// ApplyResponse advances the client state machine per §4.8: only a 2xx
// status code triggers a transition.
func (s *RtspSession) ApplyResponse(method string, statusCode int, serverSessionHeader string) {
	if serverSessionHeader != "" {
		s.ServerSessionID = serverSessionHeader
	}
	if statusCode < 200 || statusCode >= 300 {
		return
	}
	s.State = Advance(s.State, method)
}

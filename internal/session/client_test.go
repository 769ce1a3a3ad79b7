package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSessionCSeqMonotonic(t *testing.T) {
	s, err := NewRtspSession("rtsp://10.0.0.1/1")
	require.NoError(t, err)

	first := s.NextCSeq()
	second := s.NextCSeq()
	require.Greater(t, second, first)
}

func TestClientSessionIDsAreSixteenHex(t *testing.T) {
	s, err := NewRtspSession("rtsp://10.0.0.1/1")
	require.NoError(t, err)
	require.Len(t, s.DeviceID, 16)
	require.Len(t, s.SessionID, 16)
}

func TestClientApplyResponseOnlyOn2xx(t *testing.T) {
	s, err := NewRtspSession("rtsp://10.0.0.1/1")
	require.NoError(t, err)
	s.State = Ready

	s.ApplyResponse("SETUP", 455, "")
	require.Equal(t, Ready, s.State) // non-2xx: no transition

	s.ApplyResponse("SETUP", 200, "AABBCCDD")
	require.Equal(t, Setup, s.State)
	require.Equal(t, "AABBCCDD", s.ServerSessionID)
}

package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClientTransportHeader(t *testing.T) {
	p, err := Parse("RTP/AVP/UDP;unicast;mode=record;control_port=6001;timing_port=6002")
	require.NoError(t, err)
	require.Equal(t, "RTP/AVP/UDP", p.Protocol)
	require.True(t, p.Unicast)
	require.True(t, p.ModeRecord)
	require.Equal(t, 6001, p.ControlPort)
	require.Equal(t, 6002, p.TimingPort)
}

func TestParseRejectsBadPort(t *testing.T) {
	_, err := Parse("RTP/AVP/UDP;unicast;control_port=not-a-number")
	require.Error(t, err)
}

func TestBuildServerResponse(t *testing.T) {
	h := BuildServerResponse(7000, 7001, 7002)
	require.Equal(t, "RTP/AVP/UDP;unicast;mode=record;server_port=7000;control_port=7001;timing_port=7002", h)

	p, err := Parse(h)
	require.NoError(t, err)
	require.Equal(t, 7000, p.ServerPort)
	require.Equal(t, 7001, p.ControlPort)
	require.Equal(t, 7002, p.TimingPort)
}

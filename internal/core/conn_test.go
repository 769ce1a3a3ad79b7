package core

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/airtest"
	"github.com/airtunes2/airplay2/internal/rtsp"
	"github.com/airtunes2/airplay2/internal/session"
)

// drainConn reads and discards everything written to the server half of a
// net.Pipe so conn's blocking Write calls don't deadlock the test.
func drainConn(t *testing.T, client net.Conn) {
	t.Helper()
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
	}()
}

// §4.8: a non-2xx response to SETUP must leave the session state
// unchanged, even though SETUP was legal to attempt from Ready.
func TestHandleRTSPDoesNotAdvanceStateOnFailedSetup(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	drainConn(t, client)

	recv, err := session.NewReceiverSession(server.RemoteAddr())
	require.NoError(t, err)
	recv.State = session.Ready

	c := &conn{
		netConn: server,
		log:     airtest.NilLogger{},
		recv:    recv,
	}

	req := &rtsp.Request{Method: "SETUP"}
	req.Header.Set("Transport", "RTP/AVP/UDP;unicast;mode=record;control_port=notanumber;timing_port=6001")

	c.handleRTSP(req)

	require.Equal(t, 400, c.lastStatus)
	require.Equal(t, session.Ready, c.recv.State)
}

// The companion case: a method rejected as illegal in the current state
// must also leave the state untouched.
func TestHandleRTSPRejectsIllegalMethodWithoutAdvancing(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	drainConn(t, client)

	recv, err := session.NewReceiverSession(server.RemoteAddr())
	require.NoError(t, err)
	recv.State = session.Setup

	c := &conn{
		netConn: server,
		log:     airtest.NilLogger{},
		recv:    recv,
	}

	req := &rtsp.Request{Method: "SETUP"}
	c.handleRTSP(req)

	require.Equal(t, 455, c.lastStatus)
	require.Equal(t, session.Setup, c.recv.State)
}

package core

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAudioChannelThrottlesRetransmitRequests(t *testing.T) {
	controlConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer controlConn.Close()

	recvConn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer recvConn.Close()

	a := newAudioChannel(nil, controlConn, controlConn, controlConn, 0x1234, nil)
	a.writer.Start()
	defer a.writer.Stop()
	a.retransmitCounter.OnReport = func(uint64) {}
	a.retransmitCounter.Start()
	defer a.retransmitCounter.Stop()

	a.peerControl = recvConn.LocalAddr()

	attempts := retransmitRequestBurst + 10
	for i := 0; i < attempts; i++ {
		a.requestRetransmit([]uint16{uint16(i)})
	}

	recvConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)) //nolint:errcheck
	buf := make([]byte, 64)
	received := 0
	for {
		_, _, rerr := recvConn.ReadFromUDP(buf)
		if rerr != nil {
			break
		}
		received++
	}

	require.LessOrEqual(t, received, retransmitRequestBurst)
	require.Greater(t, received, 0)
}

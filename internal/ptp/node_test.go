package ptp

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNode(clockID uint64) (*Node, *Clock) {
	clock := NewClock(DefaultConfig())
	cfg := DefaultNodeConfig(clockID)
	n := NewNode(cfg, clock, nil, nil)
	return n, clock
}

func TestBMCASwitchesToSlaveOnBetterAnnounce(t *testing.T) {
	n, _ := newTestNode(100)
	require.Equal(t, RoleMaster, n.Role())

	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 319}
	n.HandleAnnounce(AnnounceMessage{Priority1: 1, Priority2: 1, ClockID: 1}, addr, addr)

	require.Equal(t, RoleSlave, n.Role())
}

func TestBMCAIgnoresSelfAnnounce(t *testing.T) {
	n, _ := newTestNode(42)
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 319}
	n.HandleAnnounce(AnnounceMessage{Priority1: 0, Priority2: 0, ClockID: 42}, addr, addr)
	require.Equal(t, RoleMaster, n.Role())
}

func TestBMCAIgnoresWorseAnnounce(t *testing.T) {
	n, _ := newTestNode(1)
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 319}
	n.HandleAnnounce(AnnounceMessage{Priority1: 255, Priority2: 255, ClockID: 255}, addr, addr)
	require.Equal(t, RoleMaster, n.Role())
}

func TestAnnounceTimeoutRevertsToMaster(t *testing.T) {
	n, _ := newTestNode(100)
	addr := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 319}
	n.HandleAnnounce(AnnounceMessage{Priority1: 1, ClockID: 1}, addr, addr)
	require.Equal(t, RoleSlave, n.Role())

	fakeNow := n.lastAnnounceAt.Add(7 * time.Second)
	n.now = func() time.Time { return fakeNow }
	n.CheckAnnounceTimeout()

	require.Equal(t, RoleMaster, n.Role())
}

func TestSyncFollowUpDelayReqDelayRespFlow(t *testing.T) {
	n, clock := newTestNode(7)

	sync := CompactMessage{Type: MsgSync, TwoStep: true, SequenceID: 1}
	n.HandleSync(sync, Timestamp(1_000_000)) // t2

	followUp := CompactMessage{Type: MsgFollowUp, SequenceID: 1, Timestamp: TimeFromTimestamp(Timestamp(0))}
	n.HandleFollowUp(followUp) // t1 = 0

	delayResp := CompactMessage{Type: MsgDelayResp, SequenceID: 1, Timestamp: TimeFromTimestamp(Timestamp(3_000_000))}
	ok := n.HandleDelayResp(delayResp, Timestamp(4_000_000)) // t4
	require.True(t, ok)
	require.True(t, clock.IsSynchronized())
}

func TestDelayRespSequenceMismatchIgnored(t *testing.T) {
	n, _ := newTestNode(7)
	n.HandleSync(CompactMessage{SequenceID: 1}, Timestamp(0))
	ok := n.HandleDelayResp(CompactMessage{SequenceID: 99}, Timestamp(0))
	require.False(t, ok)
}

func TestTransientUDPErrorsAreSwallowed(t *testing.T) {
	require.True(t, IsTransientUDPError(errors.New("wsarecvfrom: 10054")))
	require.True(t, IsTransientUDPError(errors.New("read udp: connection reset by peer")))
	require.False(t, IsTransientUDPError(errors.New("permission denied")))
	require.False(t, IsTransientUDPError(nil))
}

func TestCompactAndAnnounceRoundTrip(t *testing.T) {
	m := CompactMessage{Type: MsgSync, TwoStep: true, SequenceID: 42, Timestamp: Time{Seconds: 7, Nanoseconds: 123}, ClockID: 99}
	encoded := EncodeCompact(m)
	decoded, err := DecodeCompact(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	a := AnnounceMessage{SequenceID: 3, Priority1: 10, Priority2: 20, ClockID: 30, StepsRemoved: 1}
	encodedA := EncodeAnnounce(a)
	decodedA, err := DecodeAnnounce(encodedA)
	require.NoError(t, err)
	require.Equal(t, a, decodedA)
}

package streamer

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func buildPacket(seq uint16, ts uint32, payload []byte) []byte {
	h := rtp.Header{Version: 2, SequenceNumber: seq, Timestamp: ts, SSRC: 1}
	b, _ := h.Marshal()
	return append(b, payload...)
}

func TestReceiverDeliversInOrder(t *testing.T) {
	r := NewReceiver(nil)

	frames, missing, err := r.Push(buildPacket(100, 0, []byte{1}))
	require.NoError(t, err)
	require.Nil(t, missing)
	require.Len(t, frames, 1)
	require.Equal(t, uint16(100), frames[0].Sequence)
}

func TestReceiverReordersOutOfOrderPackets(t *testing.T) {
	r := NewReceiver(nil)

	frames, _, err := r.Push(buildPacket(100, 0, []byte{1}))
	require.NoError(t, err)
	require.Len(t, frames, 1)

	// 102 arrives before 101: held back
	frames, _, err = r.Push(buildPacket(102, 0, []byte{3}))
	require.NoError(t, err)
	require.Len(t, frames, 0)

	// 101 arrives: both 101 and 102 become ready
	frames, _, err = r.Push(buildPacket(101, 0, []byte{2}))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Equal(t, uint16(101), frames[0].Sequence)
	require.Equal(t, uint16(102), frames[1].Sequence)
}

func TestReceiverReportsMissingSequences(t *testing.T) {
	r := NewReceiver(nil)
	_, _, _ = r.Push(buildPacket(100, 0, nil))
	_, missing, _ := r.Push(buildPacket(103, 0, nil))
	require.Equal(t, []uint16{101, 102}, missing)
}

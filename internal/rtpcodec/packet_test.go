package rtpcodec

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestPacketMarshalUnmarshalRoundTrip(t *testing.T) {
	p := &Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    uint8(PayloadAudio),
			SequenceNumber: 1000,
			Timestamp:      44100,
			SSRC:           0xdeadbeef,
		},
		Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	buf, err := p.Marshal()
	require.NoError(t, err)

	var out Packet
	require.NoError(t, out.Unmarshal(buf))
	require.Equal(t, p.Header.SequenceNumber, out.Header.SequenceNumber)
	require.Equal(t, p.Header.Timestamp, out.Header.Timestamp)
	require.Equal(t, p.Payload, out.Payload)
}

func TestSampleIteratorIgnoresTrailingPartialGroup(t *testing.T) {
	payload := []byte{0x01, 0x00, 0x02, 0x00, 0xFF} // one full sample + 1 trailing byte
	it := NewSampleIterator(payload)

	s, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, int16(1), s.Left)
	require.Equal(t, int16(2), s.Right)

	_, ok = it.Next()
	require.False(t, ok)
}

func TestSampleIteratorEmpty(t *testing.T) {
	it := NewSampleIterator(nil)
	_, ok := it.Next()
	require.False(t, ok)
}

package sdp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleAnnounce = "v=0\r\n" +
	"o=iTunes 3547086147 0 IN IP4 192.168.1.10\r\n" +
	"s=iTunes\r\n" +
	"c=IN IP4 192.168.1.10\r\n" +
	"t=0 0\r\n" +
	"m=audio 0 RTP/AVP 96\r\n" +
	"a=rtpmap:96 AppleLossless\r\n" +
	"a=fmtp:96 352 0 16 40 10 14 2 255 0 0 44100\r\n"

func TestParseExtractsStreamParameters(t *testing.T) {
	params, err := Parse([]byte(sampleAnnounce))
	require.NoError(t, err)
	require.Equal(t, "AppleLossless", params.CodecID)
	require.Equal(t, 44100, params.SampleRate)
	require.Equal(t, 2, params.Channels)
	require.Equal(t, 352, params.SamplesPerPacket)
	require.Equal(t, 16, params.BitsPerSample)
}

func TestBuildProducesParsableSDP(t *testing.T) {
	params := StreamParameters{
		SampleRate: 44100, Channels: 2, BitsPerSample: 16,
		SamplesPerPacket: 352, CodecID: "AppleLossless",
	}
	body := Build(params, "123456", "192.168.1.1")
	require.Contains(t, string(body), "AppleLossless")

	reparsed, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, params.SampleRate, reparsed.SampleRate)
}

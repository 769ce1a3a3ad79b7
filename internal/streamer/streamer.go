// Package streamer implements the RTP sender (§4.9) and a jitter-aware
// receiver that reassembles decoded frames in sequence order before
// handing them to the audio pipeline.
package streamer

import (
	"encoding/binary"

	"github.com/pion/rtp"

	"github.com/airtunes2/airplay2/internal/retransmit"
	"github.com/airtunes2/airplay2/internal/rtpcodec"
)

// Streamer owns the session-long sequence/timestamp counters, cipher,
// and retransmit ring for one outgoing audio stream (§4.9, §3
// "ownership summary: retransmit buffer is owned by the streamer").
type Streamer struct {
	sequence  uint16
	timestamp uint32
	ssrc      uint32

	samplesPerPacket uint32

	cipher *rtpcodec.Cipher
	ring   *retransmit.Ring

	firstPacket bool
}

// NewStreamer builds a Streamer. samplesPerPacket advances the RTP
// timestamp each call to WriteFrame; cipher may be nil for an
// unencrypted stream.
func NewStreamer(ssrc uint32, samplesPerPacket uint32, cipher *rtpcodec.Cipher, retransmitCapacity int) *Streamer {
	return &Streamer{
		ssrc:             ssrc,
		samplesPerPacket: samplesPerPacket,
		cipher:           cipher,
		ring:             retransmit.NewRing(retransmitCapacity),
		firstPacket:      true,
	}
}

// Reset marks the next WriteFrame as the first packet of a new playback
// run, per §4.9: "the marker bit is set on the very first packet after
// session start or a flush".
func (s *Streamer) Reset() {
	s.firstPacket = true
}

// WriteFrame builds, encrypts, and buffers one outgoing RTP packet
// carrying payload, returning the final wire bytes. Steps follow §4.9
// exactly: header, payload, encryption keyed by the *current* timestamp
// (and SSRC), retransmit push under the current sequence, then counter
// advance.
func (s *Streamer) WriteFrame(payloadType rtpcodec.PayloadType, payload []byte) ([]byte, error) {
	header := rtp.Header{
		Version:        2,
		Marker:         s.firstPacket,
		PayloadType:    uint8(payloadType),
		SequenceNumber: s.sequence,
		Timestamp:      s.timestamp,
		SSRC:           s.ssrc,
	}
	s.firstPacket = false

	headerBytes, err := header.Marshal()
	if err != nil {
		return nil, err
	}

	var last8 [8]byte
	binary.BigEndian.PutUint32(last8[0:4], s.timestamp)
	binary.BigEndian.PutUint32(last8[4:8], s.ssrc)

	encrypted := payload
	if s.cipher != nil {
		encrypted, err = s.cipher.EncryptPayload(s.timestamp, last8[:], payload)
		if err != nil {
			return nil, err
		}
	}

	packet := append(headerBytes, encrypted...)

	if s.ring != nil {
		s.ring.Push(s.sequence, packet)
	}

	s.sequence++
	s.timestamp += s.samplesPerPacket

	return packet, nil
}

// RetransmitRing exposes the streamer's ring for a retransmit-request
// handler (read-only per §3's ownership summary).
func (s *Streamer) RetransmitRing() *retransmit.Ring { return s.ring }

// BuildRetransmitResponse wraps the buffered packet at seq in a
// RetransmitResponse frame: a fresh 12-byte header carrying the
// original sequence number, PT=0x56, and the marker bit set (§8 S5 —
// distinct from ordinary audio packets, whose marker is only set on
// the very first packet of a run), followed by the original packet
// bytes unchanged. Returns ok=false if seq has already aged out of the
// ring.
func (s *Streamer) BuildRetransmitResponse(seq uint16) (frame []byte, ok bool) {
	original, ok := s.ring.Get(seq)
	if !ok {
		return nil, false
	}

	header := rtp.Header{
		Version:        2,
		Marker:         true,
		PayloadType:    uint8(rtpcodec.PayloadRetransmitResponse),
		SequenceNumber: seq,
		SSRC:           s.ssrc,
	}
	headerBytes, err := header.Marshal()
	if err != nil {
		return nil, false
	}

	return append(headerBytes, original...), true
}

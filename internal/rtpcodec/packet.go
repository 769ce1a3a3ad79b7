// Package rtpcodec wraps pion/rtp's fixed RFC 3550 header with the
// AirPlay-specific payload types, sample iteration, and the three
// encryption modes a session may negotiate (§4.7).
package rtpcodec

import (
	"github.com/pion/rtp"
)

// PayloadType enumerates the RTP payload types AirPlay sessions use.
type PayloadType uint8

// Known payload types (§4.7, §4.9, §6 "Wire — UDP triple").
const (
	PayloadAudioRealtime      PayloadType = 0x60
	PayloadAudioBuffered      PayloadType = 0x61
	PayloadSync               PayloadType = 0x54
	PayloadRetransmitRequest  PayloadType = 0x55
	PayloadRetransmitResponse PayloadType = 0x56
	PayloadTimingRequest      PayloadType = 0x52
	PayloadTimingResponse     PayloadType = 0x53

	// PayloadAudio is an alias of PayloadAudioRealtime kept for call
	// sites that don't distinguish buffered vs realtime audio.
	PayloadAudio = PayloadAudioRealtime
)

// Packet is a thin wrapper pairing a pion/rtp header with its payload and
// AirPlay payload type.
type Packet struct {
	Header  rtp.Header
	Payload []byte
}

// Marshal serializes the header and payload into one wire buffer.
func (p *Packet) Marshal() ([]byte, error) {
	headerBytes, err := p.Header.Marshal()
	if err != nil {
		return nil, err
	}
	return append(headerBytes, p.Payload...), nil
}

// Unmarshal parses a wire buffer into Header and Payload.
func (p *Packet) Unmarshal(buf []byte) error {
	var h rtp.Header
	n, err := h.Unmarshal(buf)
	if err != nil {
		return err
	}
	p.Header = h
	p.Payload = append([]byte(nil), buf[n:]...)
	return nil
}

// Sample is one decoded stereo PCM frame.
type Sample struct {
	Left, Right int16
}

// SampleIterator walks a payload's 4-byte (left i16 LE, right i16 LE)
// groups, ignoring any trailing partial group (§4.7).
type SampleIterator struct {
	payload []byte
	pos     int
}

// NewSampleIterator builds an iterator over payload.
func NewSampleIterator(payload []byte) *SampleIterator {
	return &SampleIterator{payload: payload}
}

// Next returns the next sample and true, or a zero Sample and false once
// fewer than 4 bytes remain.
func (it *SampleIterator) Next() (Sample, bool) {
	if it.pos+4 > len(it.payload) {
		return Sample{}, false
	}
	left := int16(uint16(it.payload[it.pos]) | uint16(it.payload[it.pos+1])<<8)
	right := int16(uint16(it.payload[it.pos+2]) | uint16(it.payload[it.pos+3])<<8)
	it.pos += 4
	return Sample{Left: left, Right: right}, true
}

package ptp

import (
	"encoding/binary"
	"errors"
)

// MessageType distinguishes Sync/DelayReq/FollowUp/DelayResp/Announce by
// the first nibble of the PTP header (§4.6).
type MessageType byte

// Message types in use.
const (
	MsgSync      MessageType = 0x0
	MsgDelayReq  MessageType = 0x1
	MsgFollowUp  MessageType = 0x8
	MsgDelayResp MessageType = 0x9
	MsgAnnounce  MessageType = 0xB
)

// ErrShortMessage is returned when a buffer is too small to hold a PTP
// message of the requested kind.
var ErrShortMessage = errors.New("ptp: message too short")

// Time is a PTP wire timestamp: 48-bit seconds plus 32-bit nanoseconds,
// matching the IEEE 1588 on-wire representation.
type Time struct {
	Seconds     uint64 // only the low 48 bits are significant
	Nanoseconds uint32
}

// ToTimestamp converts a wire Time to nanosecond-resolution Timestamp.
func (t Time) ToTimestamp() Timestamp {
	return Timestamp(int64(t.Seconds)*1e9 + int64(t.Nanoseconds))
}

// TimeFromTimestamp is the inverse of ToTimestamp.
func TimeFromTimestamp(ts Timestamp) Time {
	ns := int64(ts)
	sec := ns / 1e9
	rem := ns % 1e9
	if rem < 0 {
		rem += 1e9
		sec--
	}
	return Time{Seconds: uint64(sec), Nanoseconds: uint32(rem)}
}

// EncodeIEEE1588 writes the 10-byte 48+32-bit timestamp format.
func EncodeIEEE1588(t Time) [10]byte {
	var out [10]byte
	var secBuf [8]byte
	binary.BigEndian.PutUint64(secBuf[:], t.Seconds)
	copy(out[0:6], secBuf[2:8]) // low 48 bits
	binary.BigEndian.PutUint32(out[6:10], t.Nanoseconds)
	return out
}

// DecodeIEEE1588 reverses EncodeIEEE1588.
func DecodeIEEE1588(b [10]byte) Time {
	var secBuf [8]byte
	copy(secBuf[2:8], b[0:6])
	return Time{
		Seconds:     binary.BigEndian.Uint64(secBuf[:]),
		Nanoseconds: binary.BigEndian.Uint32(b[6:10]),
	}
}

// CompactMessage is AirPlay's abbreviated 22-byte PTP frame: one byte
// type, one byte flags (the compact format folds the 16-bit flags word
// into a single byte, so the two-step flag, bit 9 of that word, is 0x02
// here), a 16-bit sequence ID, the 10-byte timestamp, and an 8-byte clock
// identity (§4.6).
type CompactMessage struct {
	Type       MessageType
	TwoStep    bool
	SequenceID uint16
	Timestamp  Time
	ClockID    uint64
}

// compactMessageSize is the sum of the compact frame's listed fields
// (type:1 + flags:1 + seq:2 + timestamp:10 + clock_id:8 = 22); spec.md's
// prose calls this "the compact 20-byte format" but the field list it
// gives sums to 22, which is what this implementation follows.
const compactMessageSize = 22

// EncodeCompact serializes a CompactMessage to its 22-byte wire form.
func EncodeCompact(m CompactMessage) []byte {
	out := make([]byte, compactMessageSize)
	out[0] = byte(m.Type)
	if m.TwoStep {
		out[1] = 0x02
	}
	binary.BigEndian.PutUint16(out[2:4], m.SequenceID)
	ts := EncodeIEEE1588(m.Timestamp)
	copy(out[4:14], ts[:])
	var clockBuf [8]byte
	binary.BigEndian.PutUint64(clockBuf[:], m.ClockID)
	copy(out[14:22], clockBuf[:])
	return out[:compactMessageSize]
}

// DecodeCompact parses a 22-byte AirPlay-compact PTP frame.
func DecodeCompact(b []byte) (CompactMessage, error) {
	if len(b) < compactMessageSize {
		return CompactMessage{}, ErrShortMessage
	}
	var ts [10]byte
	copy(ts[:], b[4:14])
	return CompactMessage{
		Type:       MessageType(b[0] & 0x0F),
		TwoStep:    b[1]&0x02 != 0,
		SequenceID: binary.BigEndian.Uint16(b[2:4]),
		Timestamp:  DecodeIEEE1588(ts),
		ClockID:    binary.BigEndian.Uint64(b[14:22]),
	}, nil
}

// AnnounceMessage carries the fields BMCA needs to compare grandmaster
// candidates (§4.6): priority1, priority2, and the advertising clock's
// identity, lexicographically ordered with lower winning.
type AnnounceMessage struct {
	SequenceID   uint16
	Priority1    byte
	Priority2    byte
	ClockID      uint64
	StepsRemoved uint16
}

const announceMessageSize = 34

// EncodeAnnounce serializes an AnnounceMessage. The layout is a
// simplification of the full IEEE 1588 Announce body, carrying only the
// fields this implementation's BMCA uses.
func EncodeAnnounce(m AnnounceMessage) []byte {
	out := make([]byte, announceMessageSize)
	out[0] = byte(MsgAnnounce)
	binary.BigEndian.PutUint16(out[2:4], m.SequenceID)
	out[4] = m.Priority1
	out[5] = m.Priority2
	var clockBuf [8]byte
	binary.BigEndian.PutUint64(clockBuf[:], m.ClockID)
	copy(out[6:14], clockBuf[:])
	binary.BigEndian.PutUint16(out[14:16], m.StepsRemoved)
	return out
}

// DecodeAnnounce parses the simplified Announce layout EncodeAnnounce
// produces.
func DecodeAnnounce(b []byte) (AnnounceMessage, error) {
	if len(b) < announceMessageSize {
		return AnnounceMessage{}, ErrShortMessage
	}
	return AnnounceMessage{
		SequenceID:   binary.BigEndian.Uint16(b[2:4]),
		Priority1:    b[4],
		Priority2:    b[5],
		ClockID:      binary.BigEndian.Uint64(b[6:14]),
		StepsRemoved: binary.BigEndian.Uint16(b[14:16]),
	}, nil
}

// compareBMCA implements the simplified Best Master Clock comparison of
// §4.6: lexicographic (priority1, priority2, clockID), lower wins. It
// returns true if candidate beats current.
func compareBMCA(candidate, current AnnounceMessage) bool {
	if candidate.Priority1 != current.Priority1 {
		return candidate.Priority1 < current.Priority1
	}
	if candidate.Priority2 != current.Priority2 {
		return candidate.Priority2 < current.Priority2
	}
	return candidate.ClockID < current.ClockID
}

package streamer

import (
	"github.com/airtunes2/airplay2/internal/retransmit"
	"github.com/airtunes2/airplay2/internal/rtpcodec"
)

// Frame is one reordered, decrypted packet ready for the audio pipeline.
type Frame struct {
	Sequence  uint16
	Timestamp uint32
	Payload   []byte
}

// Receiver reassembles incoming RTP packets into sequence order, feeding
// a LossDetector so the caller can request retransmits for gaps (§4.9,
// §4.10). Packets that arrive after a gap are held in the window until
// the missing sequence arrives; the window has no size bound and evicts
// nothing. The sender-side cache is retransmit.Ring.
type Receiver struct {
	cipher  *rtpcodec.Cipher
	loss    *retransmit.LossDetector
	window  map[uint16]Frame
	nextSeq uint16
	started bool
}

// NewReceiver builds a Receiver; cipher may be nil for unencrypted
// streams.
func NewReceiver(cipher *rtpcodec.Cipher) *Receiver {
	return &Receiver{
		cipher: cipher,
		loss:   retransmit.NewLossDetector(),
		window: make(map[uint16]Frame),
	}
}

// Push decodes one incoming wire packet and returns any frames that are
// now in contiguous order (possibly more than one, if a gap just
// closed), plus the set of sequence numbers the loss detector considers
// missing so far.
func (r *Receiver) Push(raw []byte) ([]Frame, []uint16, error) {
	var pkt rtpcodec.Packet
	if err := pkt.Unmarshal(raw); err != nil {
		return nil, nil, err
	}

	payload := pkt.Payload
	if r.cipher != nil {
		var last8 [8]byte
		headerBytes, _ := pkt.Header.Marshal()
		if len(headerBytes) >= 8 {
			copy(last8[:], headerBytes[len(headerBytes)-8:])
		}
		decrypted, err := r.cipher.DecryptPayload(pkt.Header.Timestamp, last8[:], payload)
		if err != nil {
			return nil, nil, err
		}
		payload = decrypted
	}

	seq := pkt.Header.SequenceNumber
	r.window[seq] = Frame{Sequence: seq, Timestamp: pkt.Header.Timestamp, Payload: payload}

	missing := r.loss.Observe(seq)

	if !r.started {
		r.started = true
		r.nextSeq = seq
	}

	var ready []Frame
	for {
		f, ok := r.window[r.nextSeq]
		if !ok {
			break
		}
		ready = append(ready, f)
		delete(r.window, r.nextSeq)
		r.nextSeq++
	}

	return ready, missing, nil
}

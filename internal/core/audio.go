package core

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
	"golang.org/x/time/rate"

	"github.com/airtunes2/airplay2/internal/asyncwriter"
	"github.com/airtunes2/airplay2/internal/counterdumper"
	"github.com/airtunes2/airplay2/internal/errordumper"
	"github.com/airtunes2/airplay2/internal/logger"
	"github.com/airtunes2/airplay2/internal/ntpestimator"
	"github.com/airtunes2/airplay2/internal/rtpcodec"
	"github.com/airtunes2/airplay2/internal/streamer"
)

const (
	timingRequestPeriod = 3 * time.Second
	retransmitQueueSize = 256

	// retransmitRequestRate bounds how often this channel will ask its
	// peer for retransmits, so a burst of losses (e.g. a brief Wi-Fi
	// stall) can't turn into a flood of RetransmitRequest packets.
	retransmitRequestRate  = 20 // per second
	retransmitRequestBurst = 20
)

// syncSnapshot is the most recently received Sync packet's contents
// (§4.9: "an NTP timestamp of now, and the RTP timestamp at which the
// next Sync will notionally occur"), kept so a caller can align local
// playback against the sender's clock without re-parsing the wire.
type syncSnapshot struct {
	rtpTimestamp     uint32
	ntpNow           ntpestimator.Timestamp
	nextRTPTimestamp uint32
	receivedAt       time.Time
}

// audioChannel owns the three UDP sockets (audio, control, timing)
// allocated at SETUP for one session (§6 "Wire — UDP triple"). It is
// receiver-role infrastructure: it reassembles inbound audio via
// streamer.Receiver, asks for retransmits over the control socket when
// streamer.Receiver reports a gap, and answers/initiates timing
// exchanges that feed an ntpestimator.Estimator.
type audioChannel struct {
	log logger.Writer

	audioConn   *net.UDPConn
	controlConn *net.UDPConn
	timingConn  *net.UDPConn

	peerControl net.Addr
	peerTiming  net.Addr

	ssrc uint32

	receiver  *streamer.Receiver
	estimator *ntpestimator.Estimator

	retransmitLimiter *rate.Limiter

	writer *asyncwriter.Writer

	lossCounter       counterdumper.CounterDumper
	retransmitCounter counterdumper.CounterDumper
	decodeErrors      errordumper.Dumper

	onFrame     func(streamer.Frame)
	onLossTotal func(n uint64)
	onRetxTotal func(n uint64)
	onDecodeErr func(n uint64, last error)

	mu                sync.Mutex
	lastSync          syncSnapshot
	retransmitReqSeq  uint16
	timingReqSeq      uint16
	pendingTimingReqs map[uint16]ntpestimator.Timestamp

	stop chan struct{}
	wg   sync.WaitGroup
}

// newAudioChannel builds a channel bound to the given already-allocated
// sockets. cipher may be nil for an unencrypted stream.
func newAudioChannel(log logger.Writer, audioConn, controlConn, timingConn *net.UDPConn, ssrc uint32, cipher *rtpcodec.Cipher) *audioChannel {
	return &audioChannel{
		log:               log,
		audioConn:         audioConn,
		controlConn:       controlConn,
		timingConn:        timingConn,
		ssrc:              ssrc,
		receiver:          streamer.NewReceiver(cipher),
		estimator:         ntpestimator.NewEstimator(ntpestimator.DefaultConfig()),
		retransmitLimiter: rate.NewLimiter(rate.Limit(retransmitRequestRate), retransmitRequestBurst),
		writer:            asyncwriter.New(retransmitQueueSize, log),
		pendingTimingReqs: make(map[uint16]ntpestimator.Timestamp),
		stop:              make(chan struct{}),
	}
}

// Start launches the read loops and the timing-request ticker. onFrame
// is invoked (from the audio read goroutine) for every in-order decoded
// frame; onLossTotal/onRetxTotal/onDecodeErr mirror counts up to the
// session manager once per second.
func (a *audioChannel) Start(onFrame func(streamer.Frame), onLossTotal, onRetxTotal func(n uint64), onDecodeErr func(n uint64, last error)) {
	a.onFrame = onFrame
	a.onLossTotal = onLossTotal
	a.onRetxTotal = onRetxTotal
	a.onDecodeErr = onDecodeErr

	a.lossCounter.OnReport = func(v uint64) {
		if a.onLossTotal != nil {
			a.onLossTotal(v)
		}
	}
	a.retransmitCounter.OnReport = func(v uint64) {
		if a.onRetxTotal != nil {
			a.onRetxTotal(v)
		}
	}
	a.decodeErrors.OnReport = func(v uint64, last error) {
		if a.onDecodeErr != nil {
			a.onDecodeErr(v, last)
		}
	}
	a.lossCounter.Start()
	a.retransmitCounter.Start()
	a.decodeErrors.Start()
	a.writer.Start()

	a.wg.Add(3)
	go a.readAudioLoop()
	go a.readControlLoop()
	go a.readTimingLoop()

	a.wg.Add(1)
	go a.timingRequestLoop()
}

// Stop terminates every goroutine and closes the sockets.
func (a *audioChannel) Stop() {
	close(a.stop)
	a.audioConn.Close()
	a.controlConn.Close()
	a.timingConn.Close()
	a.wg.Wait()
	a.writer.Stop()
	a.lossCounter.Stop()
	a.retransmitCounter.Stop()
	a.decodeErrors.Stop()
}

// SetPeers records the sender's control/timing addresses as learned from
// the SETUP Transport header, so retransmit requests and timing
// requests can be sent before any packet has arrived from that peer.
func (a *audioChannel) SetPeers(control, timing net.Addr) {
	a.mu.Lock()
	a.peerControl = control
	a.peerTiming = timing
	a.mu.Unlock()
}

// LastSync returns the most recently received Sync packet, if any.
func (a *audioChannel) LastSync() (syncSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSync, !a.lastSync.receivedAt.IsZero()
}

// Offset returns the estimated clock offset to the sender's timing
// port, per the NTP-domain measurement filter.
func (a *audioChannel) Offset() (time.Duration, bool) {
	ns, ok := a.estimator.OffsetNanos()
	if !ok {
		return 0, false
	}
	return time.Duration(ns), true
}

func (a *audioChannel) readAudioLoop() {
	defer a.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, _, err := a.audioConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		raw := append([]byte(nil), buf[:n]...)

		frames, missing, err := a.receiver.Push(raw)
		if err != nil {
			a.decodeErrors.Add(err)
			continue
		}
		for _, f := range frames {
			if a.onFrame != nil {
				a.onFrame(f)
			}
		}
		if len(missing) > 0 {
			a.lossCounter.Add(uint64(len(missing)))
			a.requestRetransmit(missing)
		}
	}
}

// requestRetransmit sends a RetransmitRequest (PT=0x55) for the given
// missing sequence numbers. §4.10's timeout note ("retransmit requests
// have no timeout, they are fire-and-forget") is why this never blocks
// on a reply: it's queued onto the async writer and forgotten.
func (a *audioChannel) requestRetransmit(missing []uint16) {
	if a.peerControl == nil || len(missing) == 0 {
		return
	}
	if !a.retransmitLimiter.Allow() {
		return
	}
	start := missing[0]
	count := uint16(len(missing))

	a.mu.Lock()
	seq := a.retransmitReqSeq
	a.retransmitReqSeq++
	a.mu.Unlock()

	header := rtp.Header{
		Version:        2,
		PayloadType:    uint8(rtpcodec.PayloadRetransmitRequest),
		SequenceNumber: seq,
		SSRC:           a.ssrc,
	}
	headerBytes, err := header.Marshal()
	if err != nil {
		return
	}
	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[0:2], start)
	binary.BigEndian.PutUint16(payload[2:4], count)
	packet := append(headerBytes, payload...)

	conn := a.controlConn
	peer := a.peerControl
	a.writer.Push(func() error {
		_, err := conn.WriteTo(packet, peer)
		return err
	})
	a.retransmitCounter.Add(uint64(count))
}

func (a *audioChannel) readControlLoop() {
	defer a.wg.Done()
	buf := make([]byte, 2048)
	for {
		n, from, err := a.controlConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		if n < 2 {
			continue
		}
		a.mu.Lock()
		a.peerControl = from
		a.mu.Unlock()

		payloadType := rtpcodec.PayloadType(buf[1] & 0x7f)
		raw := append([]byte(nil), buf[:n]...)

		switch payloadType {
		case rtpcodec.PayloadRetransmitResponse:
			a.handleRetransmitResponse(raw)
		case rtpcodec.PayloadSync:
			a.handleSync(raw)
		}
	}
}

// handleRetransmitResponse unwraps a RetransmitResponse built by
// streamer.Streamer.BuildRetransmitResponse: a 12-byte outer header
// (first two wire bytes 0x80, 0xD6 per §8 S5 — marker bit set, distinct
// from the "marker only on the first packet of a run" rule that governs
// ordinary audio packets) followed by the original packet verbatim.
func (a *audioChannel) handleRetransmitResponse(raw []byte) {
	const outerHeaderLen = 12
	if len(raw) <= outerHeaderLen {
		return
	}
	original := raw[outerHeaderLen:]

	frames, missing, err := a.receiver.Push(original)
	if err != nil {
		a.decodeErrors.Add(err)
		return
	}
	for _, f := range frames {
		if a.onFrame != nil {
			a.onFrame(f)
		}
	}
	if len(missing) > 0 {
		a.lossCounter.Add(uint64(len(missing)))
		a.requestRetransmit(missing)
	}
}

// handleSync records an inbound Sync packet (PT=0x54, ≈1 s cadence).
// Payload layout (chosen since neither the distilled spec nor the
// original source pins exact bytes, only field order): rtpTimestamp
// (4 bytes), ntpNow (8-byte NTP timestamp), nextRTPTimestamp (4 bytes).
func (a *audioChannel) handleSync(raw []byte) {
	const headerLen = 12
	const payloadLen = 16
	if len(raw) < headerLen+payloadLen {
		return
	}
	body := raw[headerLen : headerLen+payloadLen]

	snap := syncSnapshot{
		rtpTimestamp:     binary.BigEndian.Uint32(body[0:4]),
		ntpNow:           ntpestimator.Timestamp(binary.BigEndian.Uint64(body[4:12])),
		nextRTPTimestamp: binary.BigEndian.Uint32(body[12:16]),
		receivedAt:       time.Now(),
	}

	a.mu.Lock()
	a.lastSync = snap
	a.mu.Unlock()
}

func (a *audioChannel) readTimingLoop() {
	defer a.wg.Done()
	buf := make([]byte, 256)
	for {
		n, from, err := a.timingConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		a.mu.Lock()
		a.peerTiming = from
		a.mu.Unlock()

		if n < 12 {
			continue
		}
		payloadType := rtpcodec.PayloadType(buf[1] & 0x7f)
		if payloadType != rtpcodec.PayloadTimingResponse {
			continue
		}
		a.handleTimingResponse(append([]byte(nil), buf[:n]...))
	}
}

// timingRequestLoop sends a Timing Request (PT=0x52) roughly every 3 s
// (§4.9).
func (a *audioChannel) timingRequestLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(timingRequestPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.sendTimingRequest()
		}
	}
}

// sendTimingRequest builds and sends a Timing Request: a 12-byte RTP
// header followed by an 8-byte NTP timestamp (t1) the response will
// echo back.
func (a *audioChannel) sendTimingRequest() {
	if a.peerTiming == nil {
		return
	}

	a.mu.Lock()
	seq := a.timingReqSeq
	a.timingReqSeq++
	t1 := ntpestimator.Encode(time.Now())
	a.pendingTimingReqs[seq] = t1
	if len(a.pendingTimingReqs) > 32 {
		for k := range a.pendingTimingReqs {
			delete(a.pendingTimingReqs, k)
			break
		}
	}
	a.mu.Unlock()

	header := rtp.Header{
		Version:        2,
		PayloadType:    uint8(rtpcodec.PayloadTimingRequest),
		SequenceNumber: seq,
		SSRC:           a.ssrc,
	}
	headerBytes, err := header.Marshal()
	if err != nil {
		return
	}
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, uint64(t1))
	packet := append(headerBytes, payload...)

	conn := a.timingConn
	peer := a.peerTiming
	a.writer.Push(func() error {
		_, err := conn.WriteTo(packet, peer)
		return err
	})
}

// handleTimingResponse parses a Timing Response: the same 12-byte
// header (sequence echoes the request's) followed by t1 (echoed),
// t2, t3 as 8-byte NTP timestamps, feeding the (t1,t2,t3,t4) filter.
func (a *audioChannel) handleTimingResponse(raw []byte) {
	const headerLen = 12
	const payloadLen = 24
	if len(raw) < headerLen+payloadLen {
		return
	}

	var h rtp.Header
	if _, err := h.Unmarshal(raw); err != nil {
		return
	}
	body := raw[headerLen : headerLen+payloadLen]
	t1 := ntpestimator.Timestamp(binary.BigEndian.Uint64(body[0:8]))
	t2 := ntpestimator.Timestamp(binary.BigEndian.Uint64(body[8:16]))
	t3 := ntpestimator.Timestamp(binary.BigEndian.Uint64(body[16:24]))
	t4 := ntpestimator.Encode(time.Now())

	a.mu.Lock()
	sent, ok := a.pendingTimingReqs[h.SequenceNumber]
	if ok {
		delete(a.pendingTimingReqs, h.SequenceNumber)
	}
	a.mu.Unlock()
	if ok {
		t1 = sent
	}

	a.estimator.AddMeasurement(t1, t2, t3, t4)
}

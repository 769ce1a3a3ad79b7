package ptp

import (
	"net"
	"time"
)

// Run drives the Node's socket and timer loop until stop is closed or a
// non-transient socket error occurs. It owns both UDP reads: the event
// socket carries Sync/DelayReq/DelayResp, the (optional) general socket
// carries Announce/FollowUp in full two-socket PTP, or everything lands
// on the event socket alone in AirPlay's compact mode (§4.6).
//
// Run blocks the calling goroutine; callers run it with `go`.
func (n *Node) Run(stop <-chan struct{}) error {
	errCh := make(chan error, 2)

	go n.readLoop(n.eventConn, true, errCh)
	if n.generalConn != nil {
		go n.readLoop(n.generalConn, false, errCh)
	}
	go n.timerLoop(stop)

	select {
	case <-stop:
		return nil
	case err := <-errCh:
		return err
	}
}

// readLoop repeats ReadFrom on conn, decoding each datagram as whichever
// message type its length matches and dispatching to the Node's
// handlers. fromEvent records which socket delivered the datagram, for
// HandleAnnounce's per-peer address bookkeeping.
func (n *Node) readLoop(conn net.PacketConn, fromEvent bool, errCh chan<- error) {
	buf := make([]byte, 2048)
	for {
		l, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if IsTransientUDPError(err) {
				continue
			}
			errCh <- err
			return
		}
		n.dispatch(buf[:l], conn, addr, fromEvent)
	}
}

// dispatch classifies one received datagram by length and routes it to
// the matching handler, replying on the event socket for DelayReq (the
// only message a Node, acting as master, must answer directly).
func (n *Node) dispatch(b []byte, conn net.PacketConn, from net.Addr, fromEvent bool) {
	recvAt := Timestamp(n.now().UnixNano())

	switch len(b) {
	case announceMessageSize:
		msg, err := DecodeAnnounce(b)
		if err != nil {
			return
		}
		if fromEvent {
			n.HandleAnnounce(msg, from, nil)
		} else {
			n.HandleAnnounce(msg, nil, from)
		}
		return
	case compactMessageSize:
		msg, err := DecodeCompact(b)
		if err != nil {
			return
		}
		n.dispatchCompact(msg, recvAt, conn, from)
	}
}

func (n *Node) dispatchCompact(msg CompactMessage, recvAt Timestamp, conn net.PacketConn, from net.Addr) {
	switch msg.Type {
	case MsgSync:
		n.HandleSync(msg, recvAt)
		if !msg.TwoStep {
			n.sendDelayReq(conn, from)
		}
	case MsgFollowUp:
		n.HandleFollowUp(msg)
		n.sendDelayReq(conn, from)
	case MsgDelayReq:
		n.replyDelayResp(conn, from, msg, recvAt)
	case MsgDelayResp:
		n.HandleDelayResp(msg, Timestamp(n.now().UnixNano()))
	}
}

// sendDelayReq emits a DelayReq back to addr immediately after a Sync (or
// its FollowUp) has supplied t1/t2, recording our own send time as t4's
// eventual partner once the DelayResp returns.
func (n *Node) sendDelayReq(conn net.PacketConn, addr net.Addr) {
	frame := n.BuildDelayReq(Timestamp(n.now().UnixNano()))
	_, _ = conn.WriteTo(frame, addr)
}

// replyDelayResp answers a peer's DelayReq when this Node holds the
// Master role: t3 is our receipt time of their request, echoed back so
// the requester can complete its four-timestamp measurement.
func (n *Node) replyDelayResp(conn net.PacketConn, addr net.Addr, req CompactMessage, recvAt Timestamp) {
	if n.Role() != RoleMaster {
		return
	}
	resp := EncodeCompact(CompactMessage{
		Type:       MsgDelayResp,
		SequenceID: req.SequenceID,
		Timestamp:  TimeFromTimestamp(recvAt),
		ClockID:    n.cfg.ClockID,
	})
	_, _ = conn.WriteTo(resp, addr)
}

// timerLoop fires the periodic Sync/Announce emissions (when Master) and
// the Announce-timeout check (when Slave), per the intervals in cfg.
func (n *Node) timerLoop(stop <-chan struct{}) {
	syncTicker := time.NewTicker(n.cfg.SyncInterval)
	announceTicker := time.NewTicker(n.cfg.AnnounceInterval)
	timeoutTicker := time.NewTicker(n.cfg.AnnounceInterval)
	defer syncTicker.Stop()
	defer announceTicker.Stop()
	defer timeoutTicker.Stop()

	var seq uint16
	for {
		select {
		case <-stop:
			return
		case <-syncTicker.C:
			if n.Role() == RoleMaster {
				seq++
				n.broadcastSync(seq)
			}
		case <-announceTicker.C:
			if n.Role() == RoleMaster {
				seq++
				n.broadcastAnnounce(seq)
			}
		case <-timeoutTicker.C:
			n.CheckAnnounceTimeout()
		}
	}
}

// broadcastSync sends a one-step Sync (embedded send timestamp, no
// FollowUp) to every known slave, matching AirPlay's compact single-socket
// profile where a separate FollowUp is unnecessary.
func (n *Node) broadcastSync(seq uint16) {
	now := TimeFromTimestamp(Timestamp(n.now().UnixNano()))
	frame := EncodeCompact(CompactMessage{
		Type:       MsgSync,
		TwoStep:    false,
		SequenceID: seq,
		Timestamp:  now,
		ClockID:    n.cfg.ClockID,
	})
	n.mu.Lock()
	peers := append([]net.Addr(nil), n.knownSlavesEvent...)
	n.mu.Unlock()
	for _, addr := range peers {
		if addr == nil {
			continue
		}
		_, _ = n.eventConn.WriteTo(frame, addr)
	}
}

// broadcastAnnounce sends this Node's Announce to every known slave (and
// refreshes its own lastAnnounceAt bookkeeping is not needed here since
// Announce emission only matters while acting as Master).
func (n *Node) broadcastAnnounce(seq uint16) {
	frame := EncodeAnnounce(AnnounceMessage{
		SequenceID:   seq,
		Priority1:    n.cfg.Priority1,
		Priority2:    n.cfg.Priority2,
		ClockID:      n.cfg.ClockID,
		StepsRemoved: 0,
	})
	conn := n.generalConn
	peers := n.knownSlavesGeneral
	if conn == nil {
		conn = n.eventConn
		peers = n.knownSlavesEvent
	}
	n.mu.Lock()
	addrs := append([]net.Addr(nil), peers...)
	n.mu.Unlock()
	for _, addr := range addrs {
		if addr == nil {
			continue
		}
		_, _ = conn.WriteTo(frame, addr)
	}
}

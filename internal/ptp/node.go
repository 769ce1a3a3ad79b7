package ptp

import (
	"net"
	"strings"
	"sync"
	"time"
)

// Role is a node's current BMCA-elected position.
type Role int

// Roles.
const (
	RoleMaster Role = iota
	RoleSlave
)

// NodeConfig configures the Node's timers and identity (§4.6).
type NodeConfig struct {
	ClockID          uint64
	Priority1        byte
	Priority2        byte
	SyncInterval     time.Duration
	DelayReqInterval time.Duration
	AnnounceInterval time.Duration
	AnnounceTimeout  time.Duration
}

// DefaultNodeConfig matches spec.md's stated intervals and uses the IEEE
// 1588 default priorities (128) for BMCA.
func DefaultNodeConfig(clockID uint64) NodeConfig {
	return NodeConfig{
		ClockID:          clockID,
		Priority1:        128,
		Priority2:        128,
		SyncInterval:     time.Second,
		DelayReqInterval: time.Second,
		AnnounceInterval: time.Second,
		AnnounceTimeout:  6 * time.Second,
	}
}

type pendingSync struct {
	t1 Timestamp
	t2 Timestamp
	seq uint16
	have bool
}

// Node runs the unified Sync/FollowUp/DelayReq/DelayResp/Announce loop on
// the event (319) and optional general (320) UDP sockets, feeding
// accepted measurements into a Clock and arbitrating role via a
// simplified BMCA.
type Node struct {
	cfg   NodeConfig
	clock *Clock

	eventConn   net.PacketConn
	generalConn net.PacketConn

	mu             sync.Mutex
	role           Role
	currentMaster  *AnnounceMessage
	lastAnnounceAt time.Time
	knownSlavesEvent   []net.Addr
	knownSlavesGeneral []net.Addr
	pending        pendingSync
	seq            uint16

	now func() time.Time
}

// NewNode builds a Node bound to the given event/general sockets.
// generalConn may be nil, matching AirPlay's compact mode (§4.6: "when no
// general socket is configured, responses return to the source port on
// the event socket").
func NewNode(cfg NodeConfig, clock *Clock, eventConn, generalConn net.PacketConn) *Node {
	return &Node{
		cfg:         cfg,
		clock:       clock,
		eventConn:   eventConn,
		generalConn: generalConn,
		role:        RoleMaster,
		now:         time.Now,
	}
}

// Role returns the node's current BMCA-elected role.
func (n *Node) Role() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

// HandleAnnounce runs the simplified BMCA of §4.6 against a received
// Announce: ignores self-originated announces, switches to Slave if the
// remote wins, and records the sender's event/general addresses.
func (n *Node) HandleAnnounce(msg AnnounceMessage, fromEvent, fromGeneral net.Addr) {
	if msg.ClockID == n.cfg.ClockID {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	self := AnnounceMessage{Priority1: n.cfg.Priority1, Priority2: n.cfg.Priority2, ClockID: n.cfg.ClockID}
	best := self
	if n.currentMaster != nil {
		best = *n.currentMaster
	}

	if compareBMCA(msg, best) {
		n.role = RoleSlave
		m := msg
		n.currentMaster = &m
		n.lastAnnounceAt = n.now()
		n.knownSlavesEvent = append(n.knownSlavesEvent, fromEvent)
		n.knownSlavesGeneral = append(n.knownSlavesGeneral, fromGeneral)
	}
}

// CheckAnnounceTimeout reverts to Master if no Announce has arrived from
// the current master within AnnounceTimeout (§4.6). Call this once per
// timer tick.
func (n *Node) CheckAnnounceTimeout() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.role != RoleSlave || n.currentMaster == nil {
		return
	}
	if n.now().Sub(n.lastAnnounceAt) > n.cfg.AnnounceTimeout {
		n.role = RoleMaster
		n.currentMaster = nil
	}
}

// HandleSync records t2 (local receipt time) and, for a one-step Sync, t1
// (the Sync's embedded send time). For a two-step Sync t1 stays unset
// until the matching FollowUp supplies it.
func (n *Node) HandleSync(msg CompactMessage, localReceiptNs Timestamp) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.pending = pendingSync{t2: localReceiptNs, seq: msg.SequenceID, have: true}
	if !msg.TwoStep {
		n.pending.t1 = msg.Timestamp.ToTimestamp()
	}
}

// HandleFollowUp supplies t1 for a two-step Sync whose FollowUp has just
// arrived, matched by sequence ID.
func (n *Node) HandleFollowUp(msg CompactMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending.have && n.pending.seq == msg.SequenceID {
		n.pending.t1 = msg.Timestamp.ToTimestamp()
	}
}

// BuildDelayReq returns the DelayReq frame to send now that t1/t2 are
// known, along with the sequence ID to correlate the eventual
// DelayResp.
func (n *Node) BuildDelayReq(sendTime Timestamp) []byte {
	n.mu.Lock()
	n.seq++
	seq := n.seq
	n.mu.Unlock()

	return EncodeCompact(CompactMessage{
		Type:       MsgDelayReq,
		SequenceID: seq,
		Timestamp:  TimeFromTimestamp(sendTime),
		ClockID:    n.cfg.ClockID,
	})
}

// HandleDelayResp completes one PTP exchange: t3 is embedded in the
// DelayResp (the master's receipt time of our DelayReq), t4 is supplied
// by the caller (our local send time for that DelayReq). On a sequence
// match, the (t1,t2,t3,t4) tuple is fed into the Clock.
func (n *Node) HandleDelayResp(msg CompactMessage, t4 Timestamp) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.pending.have || n.pending.seq != msg.SequenceID {
		return false
	}
	t3 := msg.Timestamp.ToTimestamp()
	ok := n.clock.AddMeasurement(n.pending.t1, n.pending.t2, t3, t4)
	n.pending = pendingSync{}
	return ok
}

// IsTransientUDPError reports whether err represents a transient
// condition that must be swallowed rather than propagated — Windows
// WSAECONNRESET (10054) or any "connection reset" wrapped error (§4.6).
func IsTransientUDPError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "10054") || strings.Contains(strings.ToLower(msg), "connection reset")
}

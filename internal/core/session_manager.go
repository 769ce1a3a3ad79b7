package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airtunes2/airplay2/internal/api"
	"github.com/airtunes2/airplay2/internal/metrics"
	"github.com/airtunes2/airplay2/internal/session"
	"github.com/airtunes2/airplay2/internal/wsevents"
)

// trackedSession is one active RTSP control connection's bookkeeping,
// everything the status API and the metrics exporter need beyond what
// session.ReceiverSession itself carries.
type trackedSession struct {
	id         uuid.UUID
	created    time.Time
	remoteAddr string
	recv       *session.ReceiverSession
	kick       func()

	lossTotal       uint64
	retransmitTotal uint64
}

// SessionManager owns every live ReceiverSession and implements
// api.SessionStore so the status HTTP API can list and kick them
// without reaching into core internals (§5: "the session manager owns
// sessions and exposes callbacks").
type SessionManager struct {
	mutex    sync.RWMutex
	sessions map[uuid.UUID]*trackedSession
	events   *wsevents.Hub
}

// NewSessionManager builds an empty manager. events may be nil, in which
// case session-lifecycle notifications are silently skipped.
func NewSessionManager(events *wsevents.Hub) *SessionManager {
	return &SessionManager{sessions: make(map[uuid.UUID]*trackedSession), events: events}
}

// Add registers a freshly accepted session. kick is invoked if an
// operator requests it be torn down via the API.
func (m *SessionManager) Add(recv *session.ReceiverSession, remoteAddr string, kick func()) uuid.UUID {
	id := uuid.New()
	m.mutex.Lock()
	m.sessions[id] = &trackedSession{id: id, created: time.Now(), remoteAddr: remoteAddr, recv: recv, kick: kick}
	m.mutex.Unlock()
	m.broadcast(id, "connected")
	return id
}

func (m *SessionManager) broadcast(id uuid.UUID, state string) {
	if m.events == nil {
		return
	}
	m.events.Broadcast(wsevents.Event{
		Kind:      wsevents.EventSessionState,
		SessionID: id.String(),
		Payload:   state,
	})
}

// Remove drops a session once its connection has closed.
func (m *SessionManager) Remove(id uuid.UUID) {
	m.mutex.Lock()
	delete(m.sessions, id)
	m.mutex.Unlock()
	m.broadcast(id, "disconnected")
}

// AddLoss accumulates lost-packet counts for a session, fed by a
// counterdumper.CounterDumper attached to its streamer.
func (m *SessionManager) AddLoss(id uuid.UUID, n uint64) {
	m.mutex.Lock()
	if t, ok := m.sessions[id]; ok {
		t.lossTotal += n
	}
	m.mutex.Unlock()
}

// AddRetransmit accumulates retransmitted-packet counts for a session.
func (m *SessionManager) AddRetransmit(id uuid.UUID, n uint64) {
	m.mutex.Lock()
	if t, ok := m.sessions[id]; ok {
		t.retransmitTotal += n
	}
	m.mutex.Unlock()
}

// Snapshot copies out the current (loss, retransmit) totals for id.
func (m *SessionManager) Snapshot(id uuid.UUID) (loss, retransmit uint64, ok bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t, ok := m.sessions[id]
	if !ok {
		return 0, 0, false
	}
	return t.lossTotal, t.retransmitTotal, true
}

// Count returns the number of currently tracked sessions.
func (m *SessionManager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// APISessionsList implements api.SessionStore.
func (m *SessionManager) APISessionsList() []*api.SessionInfo {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]*api.SessionInfo, 0, len(m.sessions))
	for _, t := range m.sessions {
		out = append(out, api.SessionInfoFromReceiver(t.id, t.created, t.remoteAddr, t.recv))
	}
	return out
}

// APISessionsGet implements api.SessionStore.
func (m *SessionManager) APISessionsGet(id uuid.UUID) (*api.SessionInfo, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return api.SessionInfoFromReceiver(t.id, t.created, t.remoteAddr, t.recv), true
}

// MetricsSessionsList implements metrics.SessionStore.
func (m *SessionManager) MetricsSessionsList() []metrics.SessionSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]metrics.SessionSnapshot, 0, len(m.sessions))
	for _, t := range m.sessions {
		out = append(out, metrics.SessionSnapshot{
			ID:              t.id.String(),
			State:           t.recv.State.String(),
			RemoteAddr:      t.remoteAddr,
			LossTotal:       t.lossTotal,
			RetransmitTotal: t.retransmitTotal,
		})
	}
	return out
}

// APISessionsKick implements api.SessionStore.
func (m *SessionManager) APISessionsKick(id uuid.UUID) bool {
	m.mutex.RLock()
	t, ok := m.sessions[id]
	m.mutex.RUnlock()
	if !ok {
		return false
	}
	if t.kick != nil {
		t.kick()
	}
	return true
}

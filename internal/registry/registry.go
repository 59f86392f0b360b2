// registry.go — The session registry: the single source of truth for
// every session's lifecycle, guarded by one mutual-exclusion lock.
// Critical sections here are always a short mutation or a snapshot
// copy; they never perform channel I/O (spec §5/§6).
package registry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/session"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
)

// Registry owns every session this broker process knows about, plus
// the set of attached dashboard outboxes used for fan-out.
type Registry struct {
	mu sync.Mutex

	sessions  map[string]*session.Session
	consumers []*session.ConsumerOutbox

	dataBufferSize int
	logBufferSize  int
	ttl            time.Duration

	nextID func() string
}

// New creates an empty registry. dataBufferSize/logBufferSize size new
// sessions' history rings (spec §3: D, L); ttl bounds how long an
// ended session survives before Sweep removes it. idFunc mints new
// session ids (production wiring uses uuid.NewString).
func New(dataBufferSize, logBufferSize int, ttl time.Duration, idFunc func() string) *Registry {
	return &Registry{
		sessions:       make(map[string]*session.Session),
		dataBufferSize: dataBufferSize,
		logBufferSize:  logBufferSize,
		ttl:            ttl,
		nextID:         idFunc,
	}
}

// CreateOrResume implements the resumption rule from spec §4.4: if an
// ended session shares (device_id, package_name) with reg, it is
// resumed in place (ties broken by most-recently-ended); otherwise a
// new session is minted and inserted. The resulting SESSION_STARTED or
// SESSION_RESUMED event is broadcast in the same critical section as
// the mutation (spec §4.7: "broadcast is called while holding the
// registry lock"), so an attach racing this call can never see the new
// session in its SYNC snapshot and also receive the live broadcast for
// it. Returns the session id and whether it was a resumption.
func (r *Registry) CreateOrResume(reg protocol.RegisterPayload, outbox *session.Outbox, log telemetrylog.Logger) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidate *session.Session
	var candidateEndedAt time.Time
	for _, s := range r.sessions {
		endedAt, ended := s.EndedAt()
		if !ended {
			continue
		}
		if s.DeviceID() != reg.Device.DeviceID || s.PackageName() != reg.PackageName {
			continue
		}
		if candidate == nil || endedAt.After(candidateEndedAt) {
			candidate = s
			candidateEndedAt = endedAt
		}
	}

	var s *session.Session
	var resumed bool
	if candidate != nil {
		candidate.Resume(outbox)
		s = candidate
		resumed = true
	} else {
		id := r.nextID()
		s = session.New(id, reg, r.dataBufferSize, r.logBufferSize, outbox)
		r.sessions[id] = s
	}

	eventType := protocol.TypeSessionStarted
	if resumed {
		eventType = protocol.TypeSessionResumed
	}
	r.broadcastLocked(log, protocol.ServiceToDashboardMessage{
		Type:    eventType,
		Payload: protocol.SessionStartedPayload{Session: s.Snapshot()},
	})

	return s.ID(), resumed
}

// EndSession marks a session detached and broadcasts SESSION_ENDED in
// the same critical section (spec §4.5/§4.7). The record is left in
// place for Sweep; it remains visible to GetSession until then.
func (r *Registry) EndSession(id string, log telemetrylog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	s.End()
	r.broadcastLocked(log, protocol.ServiceToDashboardMessage{
		Type:    protocol.TypeSessionEnded,
		Payload: protocol.SessionEndedPayload{SessionID: id},
	})
}

// AddData forwards a DATA sample to the named session and broadcasts
// SESSION_DATA in the same critical section. Returns false if the
// session id is unknown.
func (r *Registry) AddData(id string, ts time.Time, value json.RawMessage, log telemetrylog.Logger) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.AddData(ts, value)
	r.broadcastLocked(log, protocol.ServiceToDashboardMessage{
		Type:    protocol.TypeSessionData,
		Payload: protocol.SessionDataPayload{SessionID: id, Data: value},
	})
	return true
}

// AddLog forwards a LOG entry to the named session and broadcasts
// SESSION_LOG in the same critical section. Returns false if the
// session id is unknown.
func (r *Registry) AddLog(id string, entry protocol.LogEntry, log telemetrylog.Logger) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.AddLog(entry)
	r.broadcastLocked(log, protocol.ServiceToDashboardMessage{
		Type:    protocol.TypeSessionLog,
		Payload: protocol.SessionLogPayload{SessionID: id, Log: entry},
	})
	return true
}

// GetSession returns the session with the given id, if any.
func (r *Registry) GetSession(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ActiveSessions returns every session currently attached to a producer.
func (r *Registry) ActiveSessions() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !s.IsEnded() {
			out = append(out, s)
		}
	}
	return out
}

// AttachConsumer registers a dashboard outbox for fan-out.
func (r *Registry) AttachConsumer(outbox *session.ConsumerOutbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers = append(r.consumers, outbox)
}

// DetachConsumer removes a dashboard outbox by identity. No-op if the
// outbox was already removed (a connection can only detach once, but
// double-detach is harmless).
func (r *Registry) DetachConsumer(outbox *session.ConsumerOutbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.consumers {
		if o == outbox {
			r.consumers = append(r.consumers[:i], r.consumers[i+1:]...)
			return
		}
	}
}

// ConsumerOutboxes returns a snapshot slice of currently attached
// dashboard outboxes, safe to range over after the lock is released.
func (r *Registry) ConsumerOutboxes() []*session.ConsumerOutbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session.ConsumerOutbox, len(r.consumers))
	copy(out, r.consumers)
	return out
}

// Broadcast delivers msg to every attached consumer outbox while
// holding the registry lock (spec §4.7). TrySend is non-blocking, so
// doing the fan-out inside the critical section is legal under §5's
// "critical sections must not perform channel I/O" rule — it performs
// no I/O, only a bounded enqueue.
func (r *Registry) Broadcast(log telemetrylog.Logger, msg protocol.ServiceToDashboardMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(log, msg)
}

// broadcastLocked is the fan-out primitive itself; callers must already
// hold r.mu. Shared by Broadcast and every mutation method that must
// broadcast atomically with its own state change.
func (r *Registry) broadcastLocked(log telemetrylog.Logger, msg protocol.ServiceToDashboardMessage) {
	for _, o := range r.consumers {
		if !o.TrySend(msg) {
			log.Debug("dropped broadcast frame: consumer outbox full or closed",
				telemetrylog.String("frame_type", msg.Type))
		}
	}
}

// Counts returns the number of active and ended (but not yet swept)
// sessions, for the /healthz endpoint.
func (r *Registry) Counts() (active, ended int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.IsEnded() {
			ended++
		} else {
			active++
		}
	}
	return active, ended
}

// Sweep removes ended sessions whose TTL has expired as of now. Active
// sessions are never touched regardless of age.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		endedAt, ended := s.EndedAt()
		if !ended {
			continue
		}
		if now.Sub(endedAt) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Snapshot builds a SYNC-style payload: a projection of every active
// session. The set of active sessions is read under the registry lock,
// but each projection is taken after the lock is released, and no
// consumer is attached; AttachConsumerAndSnapshot is the atomic form.
func (r *Registry) Snapshot() []protocol.SessionInfo {
	sessions := r.ActiveSessions()
	out := make([]protocol.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// AttachConsumerAndSnapshot attaches outbox and computes the SYNC
// payload as one critical section, so the new consumer's view is
// consistent with the moment it joined the fan-out set (spec §4.6
// step 1: "under the registry lock, attach it and compute the SYNC
// payload").
func (r *Registry) AttachConsumerAndSnapshot(outbox *session.ConsumerOutbox) []protocol.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers = append(r.consumers, outbox)
	out := make([]protocol.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		if !s.IsEnded() {
			out = append(out, s.Snapshot())
		}
	}
	return out
}

// session.go — One producer's identity, schema, buffered history, and
// outbound channel. A Session is created on first REGISTER and resumed
// (not recreated) when the same (device_id, package_name) pair
// reconnects within the registry's TTL window.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/buffers"
	"github.com/brennhill/androidoscopy-broker/internal/protocol"
)

// networkRequestRingCapacity bounds the secondary ring cleared by the
// "network_clear" dashboard action (spec §4.6).
const networkRequestRingCapacity = 500

// dataSample is one entry in a session's data history ring.
type dataSample struct {
	timestamp time.Time
	value     json.RawMessage
}

// Session is one producer's lifetime record: identity, dashboard
// schema, buffered history, and (while attached) the outbox toward its
// producer connection. Fields are protected by mu; Session is shared
// between the producer handler (owns the lifecycle) and consumer
// handlers (enqueue actions into the outbox transiently).
type Session struct {
	mu sync.Mutex

	id          string
	appName     string
	packageName string
	versionName string
	device      protocol.DeviceInfo
	dashboard   json.RawMessage

	startedAt time.Time
	endedAt   *time.Time

	dataHistory *buffers.Ring[dataSample]
	logHistory  *buffers.Ring[protocol.LogEntry]
	networkReqs *buffers.Ring[json.RawMessage]

	producerOutbox *Outbox
}

// New creates a session from a REGISTER payload. outbox is the queue
// toward the newly-connected producer; dataCap/logCap size the history
// rings (spec §3: D default 1000, L default 50000).
func New(id string, reg protocol.RegisterPayload, dataCap, logCap int, outbox *Outbox) *Session {
	return &Session{
		id:             id,
		appName:        reg.AppName,
		packageName:    reg.PackageName,
		versionName:    reg.VersionName,
		device:         reg.Device,
		dashboard:      reg.Dashboard,
		startedAt:      time.Now().UTC(),
		dataHistory:    buffers.New[dataSample](dataCap),
		logHistory:     buffers.New[protocol.LogEntry](logCap),
		networkReqs:    buffers.New[json.RawMessage](networkRequestRingCapacity),
		producerOutbox: outbox,
	}
}

// ID returns the session's globally unique, stable-across-resumption id.
func (s *Session) ID() string {
	return s.id
}

// DeviceID returns the device_id used as half of the resumption key.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device.DeviceID
}

// PackageName returns the package_name used as half of the resumption key.
func (s *Session) PackageName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packageName
}

// IsEnded reports whether the producer channel is currently detached.
func (s *Session) IsEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endedAt != nil
}

// EndedAt returns the time the producer detached, or the zero time and
// false if the session is still attached.
func (s *Session) EndedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endedAt == nil {
		return time.Time{}, false
	}
	return *s.endedAt, true
}

// Outbox returns the session's outbox toward its producer, or nil if
// the session is currently detached. Callers (consumer handlers
// routing an ACTION) must treat a nil return as "target detached."
func (s *Session) Outbox() *Outbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.producerOutbox
}

// AddData pushes a DATA sample into the session's data history.
func (s *Session) AddData(ts time.Time, value json.RawMessage) {
	s.dataHistory.Push(dataSample{timestamp: ts, value: value})
}

// AddLog pushes a LOG entry into the session's log history.
func (s *Session) AddLog(entry protocol.LogEntry) {
	s.logHistory.Push(entry)
}

// LatestData returns a copy of the most recent DATA sample's value, or
// nil if no sample has ever been pushed.
func (s *Session) LatestData() json.RawMessage {
	last, ok := s.dataHistory.Last()
	if !ok {
		return nil
	}
	return last.value
}

// RecentLogs returns the full contents of the log ring, oldest first.
func (s *Session) RecentLogs() []protocol.LogEntry {
	entries := s.logHistory.Iter()
	if entries == nil {
		return []protocol.LogEntry{}
	}
	return entries
}

// AddNetworkRequest records a captured network request in the secondary
// ring that the "network_clear" action empties.
func (s *Session) AddNetworkRequest(req json.RawMessage) {
	s.networkReqs.Push(req)
}

// NetworkRequestCount reports how many captured requests are currently
// buffered.
func (s *Session) NetworkRequestCount() int {
	return s.networkReqs.Len()
}

// ClearNetworkRequests empties the network-request ring. This is the
// side effect the broker performs for the "network_clear" action name
// (spec §4.6), in addition to forwarding the action to the producer.
func (s *Session) ClearNetworkRequests() {
	s.networkReqs.Clear()
}

// End detaches the producer: sets endedAt and drops the outbox. Per
// the invariant in spec §3, ended_at.is_some() <=> producer_outbox is
// gone; after End, Outbox() returns nil.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.endedAt = &now
	s.producerOutbox = nil
}

// Resume reattaches a new producer connection to this (previously
// ended) session: clears endedAt and installs the new outbox. The id,
// startedAt, both history rings, and the dashboard schema are untouched.
func (s *Session) Resume(outbox *Outbox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endedAt = nil
	s.producerOutbox = outbox
}

// Snapshot returns the SessionInfo projection used in SYNC and
// session-start broadcasts.
func (s *Session) Snapshot() protocol.SessionInfo {
	s.mu.Lock()
	info := protocol.SessionInfo{
		SessionID:   s.id,
		AppName:     s.appName,
		PackageName: s.packageName,
		VersionName: s.versionName,
		Device:      s.device,
		Dashboard:   s.dashboard,
		StartedAt:   s.startedAt,
	}
	s.mu.Unlock()

	info.LatestData = s.LatestData()
	info.RecentLogs = s.RecentLogs()
	return info
}

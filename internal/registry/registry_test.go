// registry_test.go — Coverage for the session registry's lifecycle
// operations: creation, resumption, sweep, and consumer attach/detach.
package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/session"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
	"github.com/stretchr/testify/require"
)

var noLog = telemetrylog.Nop{}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
}

func testRegister(deviceID, pkg string) protocol.RegisterPayload {
	return protocol.RegisterPayload{
		AppName:     "Test App",
		PackageName: pkg,
		Device:      protocol.DeviceInfo{DeviceID: deviceID},
	}
}

func TestRegistry_CreateMintsNewSession(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	id, resumed := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	require.False(t, resumed)
	require.NotEmpty(t, id)

	active := r.ActiveSessions()
	require.Len(t, active, 1)
	require.Equal(t, id, active[0].ID())
}

func TestRegistry_ResumesEndedSessionWithMatchingKey(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	id, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	r.EndSession(id, noLog)

	newID, resumed := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	require.True(t, resumed)
	require.Equal(t, id, newID)

	active := r.ActiveSessions()
	require.Len(t, active, 1)
}

func TestRegistry_DoesNotResumeDifferentKey(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	id, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	r.EndSession(id, noLog)

	_, resumed := r.CreateOrResume(testRegister("d2", "com.a"), session.NewProducerOutbox(), noLog)
	require.False(t, resumed)
}

func TestRegistry_ResumeBreaksTiesOnMostRecentlyEnded(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	idOld, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	r.EndSession(idOld, noLog)
	time.Sleep(2 * time.Millisecond)

	// A second ended session with the SAME key can't be produced through
	// CreateOrResume (it would resume the first), so insert one through
	// direct registry access and end it after the first.
	newer := session.New("id-newer", testRegister("d1", "com.a"), 10, 10, session.NewProducerOutbox())
	r.sessions[newer.ID()] = newer
	newer.End()
	require.NotEqual(t, idOld, newer.ID())

	finalID, resumed := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	require.True(t, resumed)
	require.Equal(t, newer.ID(), finalID)

	old, ok := r.GetSession(idOld)
	require.True(t, ok)
	require.True(t, old.IsEnded(), "the earlier-ended candidate must stay ended")
}

func TestRegistry_AddDataAndAddLogUnknownIDReturnsFalse(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	require.False(t, r.AddData("missing", time.Now(), json.RawMessage(`{}`), noLog))
	require.False(t, r.AddLog("missing", protocol.LogEntry{}, noLog))
}

func TestRegistry_AddDataAndAddLogKnownID(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())
	id, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)

	require.True(t, r.AddData(id, time.Now(), json.RawMessage(`{"x":1}`), noLog))
	require.True(t, r.AddLog(id, protocol.LogEntry{Message: "hi"}, noLog))

	s, ok := r.GetSession(id)
	require.True(t, ok)
	require.Equal(t, json.RawMessage(`{"x":1}`), s.LatestData())
}

func TestRegistry_SweepRemovesOnlyExpiredEndedSessions(t *testing.T) {
	t.Parallel()
	r := New(10, 10, 10*time.Millisecond, sequentialIDs())

	activeID, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)
	endedID, _ := r.CreateOrResume(testRegister("d2", "com.b"), session.NewProducerOutbox(), noLog)
	r.EndSession(endedID, noLog)

	removed := r.Sweep(time.Now())
	require.Equal(t, 0, removed, "not yet past TTL")

	removed = r.Sweep(time.Now().Add(time.Hour))
	require.Equal(t, 1, removed)

	_, ok := r.GetSession(endedID)
	require.False(t, ok)
	_, ok = r.GetSession(activeID)
	require.True(t, ok)
}

func TestRegistry_AttachDetachConsumer(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())

	o1 := session.NewConsumerOutbox()
	o2 := session.NewConsumerOutbox()
	r.AttachConsumer(o1)
	r.AttachConsumer(o2)
	require.Len(t, r.ConsumerOutboxes(), 2)

	r.DetachConsumer(o1)
	remaining := r.ConsumerOutboxes()
	require.Len(t, remaining, 1)
	require.Same(t, o2, remaining[0])
}

func TestRegistry_AttachConsumerAndSnapshotIncludesActiveSessions(t *testing.T) {
	t.Parallel()
	r := New(10, 10, time.Hour, sequentialIDs())
	id, _ := r.CreateOrResume(testRegister("d1", "com.a"), session.NewProducerOutbox(), noLog)

	o := session.NewConsumerOutbox()
	snap := r.AttachConsumerAndSnapshot(o)
	require.Len(t, snap, 1)
	require.Equal(t, id, snap[0].SessionID)
	require.Len(t, r.ConsumerOutboxes(), 1)
}

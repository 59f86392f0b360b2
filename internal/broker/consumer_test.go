package broker

import (
	"encoding/json"
	"testing"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog/telemetrylogtest"
	"github.com/brennhill/androidoscopy-broker/internal/util"
	"github.com/stretchr/testify/require"
)

func TestServeConsumer_SyncIsFirstFrame(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	conn := newFakeConn()
	util.SafeGo(func() { ServeConsumer(conn, s.Registry, s.Log) })

	frames := waitForSent(t, conn, 1)
	msg := decodeFrame(t, frames[0])
	require.Equal(t, protocol.TypeSync, msg["type"])
}

func TestServeConsumer_ActionForUnknownSessionIsDropped(t *testing.T) {
	t.Parallel()
	s := newTestServer()
	log := &telemetrylogtest.Recording{}
	s.Log = log

	conn := newFakeConn()
	util.SafeGo(func() { ServeConsumer(conn, s.Registry, s.Log) })
	waitForSent(t, conn, 1)

	actionFrame, _ := protocol.Marshal(struct {
		Type    string                           `json:"type"`
		Payload protocol.DashboardActionPayload `json:"payload"`
	}{
		Type: protocol.TypeAction,
		Payload: protocol.DashboardActionPayload{
			SessionID: "does-not-exist",
			ActionID:  "a1",
			Action:    "clear_cache",
		},
	})
	conn.feed(actionFrame)

	require.Eventually(t, func() bool {
		return log.CountLevel("warn") > 0
	}, waitDeadline, pollInterval)
}

func TestServeConsumer_NetworkClearActionClearsRingAndForwards(t *testing.T) {
	t.Parallel()
	s := newTestServer()

	producerConn := newFakeConn()
	util.SafeGo(func() { ServeProducer(producerConn, s.Registry, s.Log) })
	producerConn.feed(registerFrame("Test App", "com.test.app", "d1"))
	registered := waitForSent(t, producerConn, 1)
	sessionID := decodeFrame(t, registered[0])["session_id"].(string)

	sess, ok := s.Registry.GetSession(sessionID)
	require.True(t, ok)
	sess.AddNetworkRequest(json.RawMessage(`{"url":"https://example.com"}`))

	consumerConn := newFakeConn()
	util.SafeGo(func() { ServeConsumer(consumerConn, s.Registry, s.Log) })
	waitForSent(t, consumerConn, 1)

	actionFrame, _ := protocol.Marshal(struct {
		Type    string                           `json:"type"`
		Payload protocol.DashboardActionPayload `json:"payload"`
	}{
		Type: protocol.TypeAction,
		Payload: protocol.DashboardActionPayload{
			SessionID: sessionID,
			ActionID:  "a1",
			Action:    protocol.ActionNetworkClear,
		},
	})
	consumerConn.feed(actionFrame)

	waitForSent(t, producerConn, 2) // REGISTERED + ACTION forwarded
	require.Eventually(t, func() bool {
		return sess.NetworkRequestCount() == 0
	}, waitDeadline, pollInterval)
}

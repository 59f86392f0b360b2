// consumer.go — The dashboard connection handler (spec §4.6): attach,
// write a SYNC snapshot before any fan-out event queued in the new
// outbox is forwarded, spawn a forwarder, then loop reading ACTION
// frames until the connection closes.
package broker

import (
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/registry"
	"github.com/brennhill/androidoscopy-broker/internal/session"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
	"github.com/brennhill/androidoscopy-broker/internal/util"
	"github.com/gorilla/websocket"
)

// ConsumerConn is the minimal surface the handler needs from a live
// WebSocket connection — satisfied by *websocket.Conn in production
// and by a fake in tests.
type ConsumerConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ServeConsumer runs a dashboard connection until it closes or errors.
func ServeConsumer(conn ConsumerConn, reg *registry.Registry, log telemetrylog.Logger) {
	outbox := session.NewConsumerOutbox()
	sessions := reg.AttachConsumerAndSnapshot(outbox)

	syncFrame := protocol.ServiceToDashboardMessage{
		Type:    protocol.TypeSync,
		Payload: protocol.SyncPayload{Sessions: sessions},
	}
	raw, err := protocol.Marshal(syncFrame)
	if err != nil {
		log.Error("failed to marshal SYNC frame", telemetrylog.Err(err))
		reg.DetachConsumer(outbox)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		reg.DetachConsumer(outbox)
		return
	}

	util.SafeGo(func() { forwardConsumerOutbox(conn, outbox, log) })

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			outbox.Close()
			reg.DetachConsumer(outbox)
			return
		}

		msg, err := protocol.ParseDashboardMessage(frame)
		if err != nil {
			log.Warn("dropping unparseable dashboard frame", telemetrylog.Err(err))
			continue
		}

		action, err := protocol.ParseDashboardActionPayload(msg.Payload)
		if err != nil {
			log.Warn("malformed ACTION payload", telemetrylog.Err(err))
			continue
		}
		routeAction(reg, log, action)
	}
}

// routeAction implements spec §4.6 step 4 and the network_clear special
// case from the "Action name semantics" paragraph.
func routeAction(reg *registry.Registry, log telemetrylog.Logger, action protocol.DashboardActionPayload) {
	target, ok := reg.GetSession(action.SessionID)
	if !ok {
		log.Warn("dropping ACTION for unknown session", telemetrylog.Err(protocol.ErrUnknownSessionAction),
			telemetrylog.String("session_id", action.SessionID))
		return
	}
	if target.IsEnded() {
		log.Warn("dropping ACTION for detached session", telemetrylog.Err(protocol.ErrDetachedSessionAction),
			telemetrylog.String("session_id", action.SessionID))
		return
	}

	if action.Action == protocol.ActionNetworkClear {
		target.ClearNetworkRequests()
	}

	frame := protocol.ServiceToAppMessage{
		Type:      protocol.TypeAction,
		Timestamp: time.Now().UnixMilli(),
		SessionID: action.SessionID,
		Payload: protocol.ActionPayload{
			ActionID: action.ActionID,
			Action:   action.Action,
			Args:     action.Args,
		},
	}
	if !target.Outbox().TrySend(frame) {
		log.Warn("failed to enqueue ACTION frame: producer outbox full, closed, or gone",
			telemetrylog.String("session_id", action.SessionID), telemetrylog.String("action_id", action.ActionID))
	}
}

// forwardConsumerOutbox drains outbox onto conn until it is closed or a
// write fails.
func forwardConsumerOutbox(conn ConsumerConn, outbox *session.ConsumerOutbox, log telemetrylog.Logger) {
	for {
		select {
		case <-outbox.Closed():
			return
		case msg := <-outbox.Recv():
			raw, err := protocol.Marshal(msg)
			if err != nil {
				log.Error("failed to marshal outbound dashboard frame", telemetrylog.Err(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Debug("consumer outbox forwarder exiting on write error", telemetrylog.Err(err))
				return
			}
		}
	}
}

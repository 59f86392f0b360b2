// producer.go — The producer connection state machine (spec §4.5):
// AwaitRegister -> Registered(session_id) -> Terminal. One goroutine
// runs this loop per /ws/app connection; a second, launched via
// util.SafeGo, drains the session's outbox onto the wire.
package broker

import (
	"encoding/json"
	"time"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/registry"
	"github.com/brennhill/androidoscopy-broker/internal/session"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
	"github.com/brennhill/androidoscopy-broker/internal/util"
	"github.com/gorilla/websocket"
)

// producerState names the three states of spec §4.5.
type producerState int

const (
	stateAwaitRegister producerState = iota
	stateRegistered
	stateTerminal
)

// ProducerConn is the minimal surface the handler needs from a live
// WebSocket connection — satisfied by *websocket.Conn in production
// and by a fake in tests.
type ProducerConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ServeProducer runs the AwaitRegister -> Registered -> Terminal loop
// for one producer connection until the connection closes. It never
// returns an error: every failure mode is a transition to Terminal.
func ServeProducer(conn ProducerConn, reg *registry.Registry, log telemetrylog.Logger) {
	state := stateAwaitRegister
	var sessionID string
	var outbox *session.Outbox

	for state != stateTerminal {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			handleProducerDisconnect(reg, log, state, sessionID)
			state = stateTerminal
			break
		}

		msg, err := protocol.ParseAppMessage(raw)
		if err != nil {
			log.Warn("dropping unparseable app frame", telemetrylog.Err(err))
			continue
		}

		switch state {
		case stateAwaitRegister:
			if msg.Type != protocol.TypeRegister {
				log.Warn("dropping non-REGISTER frame in AwaitRegister", telemetrylog.String("type", msg.Type))
				continue
			}
			sessionID, outbox, err = handleRegister(conn, reg, log, msg)
			if err != nil {
				continue
			}
			state = stateRegistered

		case stateRegistered:
			if msg.Type == protocol.TypeRegister {
				log.Warn("dropping duplicate REGISTER",
					telemetrylog.Err(protocol.ErrDuplicateRegister), telemetrylog.String("session_id", sessionID))
				continue
			}
			handleRegisteredFrame(reg, log, sessionID, msg)
		}
	}

	_ = outbox // outbox lifetime is owned by the Session, not this goroutine
}

// handleProducerDisconnect implements the Registered -> Terminal
// transition on channel close: end the session, which broadcasts
// SESSION_ENDED atomically with the mutation. AwaitRegister -> Terminal
// on close does nothing, since no session was ever created.
func handleProducerDisconnect(reg *registry.Registry, log telemetrylog.Logger, state producerState, sessionID string) {
	if state != stateRegistered {
		return
	}
	reg.EndSession(sessionID, log)
}

// handleRegister processes a REGISTER frame in AwaitRegister: creates
// or resumes a session (broadcasting the matching session-start event
// to dashboards atomically with that mutation, spec §4.7), then
// replies REGISTERED on the producer's own outbox.
func handleRegister(conn ProducerConn, reg *registry.Registry, log telemetrylog.Logger, msg protocol.AppMessage) (string, *session.Outbox, error) {
	payload, err := protocol.ParseRegisterPayload(msg.Payload)
	if err != nil {
		log.Warn("malformed REGISTER payload", telemetrylog.Err(err))
		return "", nil, err
	}

	outbox := session.NewProducerOutbox()
	sessionID, _ := reg.CreateOrResume(payload, outbox, log)

	util.SafeGo(func() { forwardProducerOutbox(conn, outbox, log, sessionID) })

	registeredFrame := protocol.ServiceToAppMessage{
		Type:      protocol.TypeRegistered,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
		Payload:   protocol.RegisteredPayload{SessionID: sessionID},
	}
	if !outbox.TrySend(registeredFrame) {
		log.Warn("failed to enqueue REGISTERED frame", telemetrylog.String("session_id", sessionID))
	}

	return sessionID, outbox, nil
}

// handleRegisteredFrame processes DATA/LOG/ACTION_RESULT frames once a
// producer is bound to a session id.
func handleRegisteredFrame(reg *registry.Registry, log telemetrylog.Logger, boundSessionID string, msg protocol.AppMessage) {
	if msg.SessionID != "" && msg.SessionID != boundSessionID {
		log.Warn("dropping frame with mismatched session_id", telemetrylog.Err(protocol.ErrSessionIDMismatch),
			telemetrylog.String("bound", boundSessionID), telemetrylog.String("got", msg.SessionID))
		return
	}

	switch msg.Type {
	case protocol.TypeData:
		handleDataFrame(reg, log, boundSessionID, msg)
	case protocol.TypeLog:
		handleLogFrame(reg, log, boundSessionID, msg)
	case protocol.TypeActionResult:
		handleActionResultFrame(reg, log, boundSessionID, msg)
	default:
		log.Warn("dropping unrecognized frame type in Registered", telemetrylog.String("type", msg.Type))
	}
}

func handleDataFrame(reg *registry.Registry, log telemetrylog.Logger, sessionID string, msg protocol.AppMessage) {
	var value json.RawMessage
	if err := json.Unmarshal(msg.Payload, &value); err != nil {
		log.Warn("malformed DATA payload", telemetrylog.Err(err), telemetrylog.String("session_id", sessionID))
		return
	}
	ts := time.UnixMilli(msg.Timestamp).UTC()
	if !reg.AddData(sessionID, ts, value, log) {
		log.Warn("DATA frame for unknown session", telemetrylog.String("session_id", sessionID))
	}
}

func handleLogFrame(reg *registry.Registry, log telemetrylog.Logger, sessionID string, msg protocol.AppMessage) {
	payload, err := protocol.ParseLogPayload(msg.Payload)
	if err != nil {
		log.Warn("malformed LOG payload", telemetrylog.Err(err), telemetrylog.String("session_id", sessionID))
		return
	}
	if err := protocol.ValidateLogPayload(payload); err != nil {
		log.Warn("oversized LOG payload rejected", telemetrylog.Err(err), telemetrylog.String("session_id", sessionID))
		return
	}

	entry := protocol.LogEntry{
		Timestamp: time.UnixMilli(msg.Timestamp).UTC(),
		Level:     payload.Level,
		Tag:       payload.Tag,
		Message:   payload.Message,
		Throwable: payload.Throwable,
	}
	if !reg.AddLog(sessionID, entry, log) {
		log.Warn("LOG frame for unknown session", telemetrylog.String("session_id", sessionID))
	}
}

func handleActionResultFrame(reg *registry.Registry, log telemetrylog.Logger, sessionID string, msg protocol.AppMessage) {
	payload, err := protocol.ParseActionResultPayload(msg.Payload)
	if err != nil {
		log.Warn("malformed ACTION_RESULT payload", telemetrylog.Err(err), telemetrylog.String("session_id", sessionID))
		return
	}
	broadcastSessionEvent(reg, log, protocol.TypeActionResult, protocol.DashboardActionResultPayload{
		SessionID: sessionID,
		ActionID:  payload.ActionID,
		Success:   payload.Success,
		Message:   payload.Message,
		Data:      payload.Data,
	})
}

// forwardProducerOutbox drains outbox onto conn until the outbox is
// closed or a write fails. A write failure exits the forwarder; the
// main read loop will separately observe the connection closing.
func forwardProducerOutbox(conn ProducerConn, outbox *session.Outbox, log telemetrylog.Logger, sessionID string) {
	for {
		select {
		case <-outbox.Closed():
			return
		case msg := <-outbox.Recv():
			raw, err := protocol.Marshal(msg)
			if err != nil {
				log.Error("failed to marshal outbound app frame", telemetrylog.Err(err), telemetrylog.String("session_id", sessionID))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Debug("producer outbox forwarder exiting on write error",
					telemetrylog.String("session_id", sessionID), telemetrylog.Err(err))
				return
			}
		}
	}
}

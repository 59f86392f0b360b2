// messages.go — Wire message types for the three channel directions:
// app (producer) -> service, service -> app, and service <-> dashboard
// (consumer). All frames are JSON objects discriminated by a "type"
// field. Field names are snake_case to match the wire contract the
// Android SDK and the dashboard UI are built against.
package protocol

import (
	"encoding/json"
	"time"
)

// Log levels accepted in a LOG payload.
const (
	LevelVerbose = "VERBOSE"
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// App -> service frame types.
const (
	TypeRegister     = "REGISTER"
	TypeData         = "DATA"
	TypeLog          = "LOG"
	TypeActionResult = "ACTION_RESULT"
)

// Service -> app frame types.
const (
	TypeRegistered = "REGISTERED"
	TypeAction     = "ACTION"
	TypeError      = "ERROR"
)

// Service -> dashboard frame types.
const (
	TypeSync           = "SYNC"
	TypeSessionStarted = "SESSION_STARTED"
	TypeSessionResumed = "SESSION_RESUMED"
	TypeSessionData    = "SESSION_DATA"
	TypeSessionLog     = "SESSION_LOG"
	TypeSessionEnded   = "SESSION_ENDED"
)

// DeviceInfo identifies the physical or virtual device a producer runs on.
// The pair (DeviceID, PackageName) is the session resumption key.
type DeviceInfo struct {
	DeviceID     string `json:"device_id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	OSVersion    string `json:"os_version"`
	APILevel     int    `json:"api_level"`
	IsEmulator   bool   `json:"is_emulator"`
}

// RegisterPayload is the body of a producer REGISTER frame.
type RegisterPayload struct {
	ProtocolVersion int             `json:"protocol_version"`
	AppName         string          `json:"app_name"`
	PackageName     string          `json:"package_name"`
	VersionName     string          `json:"version_name"`
	Device          DeviceInfo      `json:"device"`
	Dashboard       json.RawMessage `json:"dashboard"`
}

// LogPayload is the body of a producer LOG frame.
type LogPayload struct {
	Level     string `json:"level"`
	Tag       string `json:"tag,omitempty"`
	Message   string `json:"message"`
	Throwable string `json:"throwable,omitempty"`
}

// ActionResultPayload is the body of a producer ACTION_RESULT frame.
type ActionResultPayload struct {
	ActionID string          `json:"action_id"`
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// AppMessage is a frame received from a producer on /ws/app.
// Payload is kept raw and decoded according to Type by the
// Parse*Payload helpers.
type AppMessage struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// RegisteredPayload is the body of a REGISTERED frame sent to a producer.
type RegisteredPayload struct {
	SessionID string `json:"session_id"`
}

// ActionPayload is the body of an ACTION frame sent to a producer.
type ActionPayload struct {
	ActionID string          `json:"action_id"`
	Action   string          `json:"action"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// ErrorPayload is the body of an ERROR frame sent to a producer.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServiceToAppMessage is a frame sent to a producer on /ws/app.
type ServiceToAppMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Payload   interface{} `json:"payload"`
}

// SessionInfo is the snapshot projection of a Session sent to dashboards
// in SYNC and session-start events.
type SessionInfo struct {
	SessionID   string          `json:"session_id"`
	AppName     string          `json:"app_name"`
	PackageName string          `json:"package_name"`
	VersionName string          `json:"version_name"`
	Device      DeviceInfo      `json:"device"`
	Dashboard   json.RawMessage `json:"dashboard"`
	StartedAt   time.Time       `json:"started_at"`
	LatestData  json.RawMessage `json:"latest_data,omitempty"`
	RecentLogs  []LogEntry      `json:"recent_logs"`
}

// LogEntry is one buffered log record in a session's log history.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Tag       string    `json:"tag,omitempty"`
	Message   string    `json:"message"`
	Throwable string    `json:"throwable,omitempty"`
}

// SyncPayload is the body of the one-shot SYNC frame sent to a dashboard
// immediately after it attaches.
type SyncPayload struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionStartedPayload is the body of SESSION_STARTED/SESSION_RESUMED.
type SessionStartedPayload struct {
	Session SessionInfo `json:"session"`
}

// SessionDataPayload is the body of a SESSION_DATA frame.
type SessionDataPayload struct {
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

// SessionLogPayload is the body of a SESSION_LOG frame.
type SessionLogPayload struct {
	SessionID string   `json:"session_id"`
	Log       LogEntry `json:"log"`
}

// SessionEndedPayload is the body of a SESSION_ENDED frame.
type SessionEndedPayload struct {
	SessionID string `json:"session_id"`
}

// DashboardActionResultPayload is the body of the ACTION_RESULT frame
// relayed to dashboards (adds session_id to the producer's payload).
type DashboardActionResultPayload struct {
	SessionID string          `json:"session_id"`
	ActionID  string          `json:"action_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ServiceToDashboardMessage is a frame sent to a consumer on /ws/dashboard.
type ServiceToDashboardMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Payload   interface{} `json:"payload"`
}

// DashboardActionPayload is the body of a consumer-issued ACTION frame.
type DashboardActionPayload struct {
	SessionID string          `json:"session_id"`
	ActionID  string          `json:"action_id"`
	Action    string          `json:"action"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// DashboardToServiceMessage is a frame received from a consumer on
// /ws/dashboard. ACTION is the only recognized type.
type DashboardToServiceMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ActionNetworkClear is the one action name the broker treats specially:
// it also clears the target session's network-request ring (spec §4.6).
const ActionNetworkClear = "network_clear"

// errors.go — Named error kinds for the protocol layer. Every kind here
// maps to a row in the broker's error-handling table: the frame is
// logged and dropped, the channel is never torn down for these.
package protocol

import "errors"

var (
	// ErrParseFailure is returned for malformed JSON or an unknown frame type.
	ErrParseFailure = errors.New("protocol: parse failure")

	// ErrLogMessageTooLarge is returned when LOG.payload.message exceeds
	// MaxLogMessageBytes.
	ErrLogMessageTooLarge = errors.New("protocol: log message too large")

	// ErrLogThrowableTooLarge is returned when LOG.payload.throwable
	// exceeds MaxLogThrowableBytes.
	ErrLogThrowableTooLarge = errors.New("protocol: log throwable too large")

	// ErrSessionIDMismatch is returned when a frame's embedded session_id
	// does not match the session bound to the connection.
	ErrSessionIDMismatch = errors.New("protocol: session id mismatch")

	// ErrDuplicateRegister is returned for a second REGISTER on one channel.
	ErrDuplicateRegister = errors.New("protocol: duplicate register")

	// ErrUnknownSessionAction is returned when a dashboard ACTION targets
	// a session id the registry has never seen.
	ErrUnknownSessionAction = errors.New("protocol: unknown session action target")

	// ErrDetachedSessionAction is returned when a dashboard ACTION targets
	// a session whose producer has already disconnected.
	ErrDetachedSessionAction = errors.New("protocol: action target session is detached")
)

// validate.go — Size limits on producer LOG payloads. Oversized fields
// are rejected so one misbehaving producer can't grow a session's log
// ring past its byte budget; the frame is dropped, the channel stays open.
package protocol

const (
	// MaxLogMessageBytes is the inclusive limit on LOG.payload.message.
	MaxLogMessageBytes = 64 * 1024

	// MaxLogThrowableBytes is the inclusive limit on LOG.payload.throwable.
	MaxLogThrowableBytes = 256 * 1024
)

// ValidateLogPayload enforces the size limits in spec §4.1. Returns nil
// if the payload is within bounds.
func ValidateLogPayload(p LogPayload) error {
	if len(p.Message) > MaxLogMessageBytes {
		return ErrLogMessageTooLarge
	}
	if len(p.Throwable) > MaxLogThrowableBytes {
		return ErrLogThrowableTooLarge
	}
	return nil
}

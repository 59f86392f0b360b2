// broadcast.go — The one primitive that fans a consumer-facing message
// out to every attached dashboard. Spec §4.7: clone into every outbox
// while holding the registry lock; a full or closed outbox is dropped,
// never retried, never allowed to block the broadcaster.
package broker

import (
	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/registry"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog"
)

// Broadcast delivers msg to every dashboard currently attached to reg,
// holding the registry lock for the duration of the fan-out (spec
// §4.7) so it can never interleave with a consumer attaching mid-flight.
func Broadcast(reg *registry.Registry, log telemetrylog.Logger, msg protocol.ServiceToDashboardMessage) {
	reg.Broadcast(log, msg)
}

// broadcastSessionEvent is a convenience used by the producer handler:
// it builds and sends a ServiceToDashboardMessage in one call.
func broadcastSessionEvent(reg *registry.Registry, log telemetrylog.Logger, frameType string, payload interface{}) {
	Broadcast(reg, log, protocol.ServiceToDashboardMessage{
		Type:    frameType,
		Payload: payload,
	})
}

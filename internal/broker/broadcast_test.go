package broker

import (
	"testing"

	"github.com/brennhill/androidoscopy-broker/internal/protocol"
	"github.com/brennhill/androidoscopy-broker/internal/registry"
	"github.com/brennhill/androidoscopy-broker/internal/session"
	"github.com/brennhill/androidoscopy-broker/internal/telemetrylog/telemetrylogtest"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_DeliversToEveryAttachedConsumer(t *testing.T) {
	t.Parallel()
	reg := registry.New(10, 10, 1, func() string { return "id" })

	o1 := session.NewConsumerOutbox()
	o2 := session.NewConsumerOutbox()
	reg.AttachConsumer(o1)
	reg.AttachConsumer(o2)

	log := &telemetrylogtest.Recording{}
	Broadcast(reg, log, protocol.ServiceToDashboardMessage{Type: protocol.TypeSessionEnded})

	select {
	case <-o1.Recv():
	default:
		t.Fatal("o1 did not receive broadcast")
	}
	select {
	case <-o2.Recv():
	default:
		t.Fatal("o2 did not receive broadcast")
	}
}

func TestBroadcast_FullOutboxIsDroppedAndLogged(t *testing.T) {
	t.Parallel()
	reg := registry.New(10, 10, 1, func() string { return "id" })

	o := session.NewConsumerOutbox()
	reg.AttachConsumer(o)

	// Fill the outbox to capacity (64) so the next send fails.
	for i := 0; i < 64; i++ {
		require.True(t, o.TrySend(protocol.ServiceToDashboardMessage{Type: protocol.TypeSessionEnded}))
	}

	log := &telemetrylogtest.Recording{}
	Broadcast(reg, log, protocol.ServiceToDashboardMessage{Type: protocol.TypeSessionEnded})

	require.Equal(t, 1, log.CountLevel("debug"))
}

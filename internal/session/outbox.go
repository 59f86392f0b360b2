// outbox.go — Bounded per-channel outbound queue. A broadcast or action
// route is a non-blocking try-send: a full outbox means the recipient
// isn't draining fast enough, so the message is dropped rather than
// stalling the sender. Producers are never blocked by slow consumers
// (spec §5) and this is the primitive that makes that true.
package session

import "github.com/brennhill/androidoscopy-broker/internal/protocol"

// producerOutboxCapacity bounds the queue toward a single producer.
const producerOutboxCapacity = 32

// consumerOutboxCapacity bounds the queue toward a single consumer.
const consumerOutboxCapacity = 64

// Outbox is a bounded message queue drained by a forwarder goroutine
// that writes frames onto the underlying channel. Outbox itself never
// touches the network; it only buffers.
type Outbox struct {
	ch     chan protocol.ServiceToAppMessage
	closed chan struct{}
}

// NewProducerOutbox creates an outbox sized for a producer connection.
func NewProducerOutbox() *Outbox {
	return &Outbox{
		ch:     make(chan protocol.ServiceToAppMessage, producerOutboxCapacity),
		closed: make(chan struct{}),
	}
}

// TrySend enqueues msg without blocking. Returns false if the outbox is
// full or already closed; the caller logs and drops on false.
func (o *Outbox) TrySend(msg protocol.ServiceToAppMessage) bool {
	if o == nil {
		return false
	}
	select {
	case <-o.closed:
		return false
	default:
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// Recv returns the channel a forwarder goroutine drains.
func (o *Outbox) Recv() <-chan protocol.ServiceToAppMessage {
	return o.ch
}

// Closed returns a channel that is closed once Close has been called,
// so a forwarder's select can observe shutdown promptly.
func (o *Outbox) Closed() <-chan struct{} {
	return o.closed
}

// Close marks the outbox closed. Safe to call multiple times.
func (o *Outbox) Close() {
	select {
	case <-o.closed:
	default:
		close(o.closed)
	}
}

// ConsumerOutbox is a bounded queue toward one dashboard connection.
// Distinct type from Outbox because its payload is the dashboard-facing
// message family, and its identity (not its contents) is what the
// registry uses for detach-on-failure bookkeeping.
type ConsumerOutbox struct {
	ch     chan protocol.ServiceToDashboardMessage
	closed chan struct{}
}

// NewConsumerOutbox creates an outbox sized for a dashboard connection.
func NewConsumerOutbox() *ConsumerOutbox {
	return &ConsumerOutbox{
		ch:     make(chan protocol.ServiceToDashboardMessage, consumerOutboxCapacity),
		closed: make(chan struct{}),
	}
}

// TrySend enqueues msg without blocking. Returns false if full or closed.
func (o *ConsumerOutbox) TrySend(msg protocol.ServiceToDashboardMessage) bool {
	select {
	case <-o.closed:
		return false
	default:
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// Recv returns the channel a forwarder goroutine drains.
func (o *ConsumerOutbox) Recv() <-chan protocol.ServiceToDashboardMessage {
	return o.ch
}

// Closed returns a channel that is closed once Close has been called.
func (o *ConsumerOutbox) Closed() <-chan struct{} {
	return o.closed
}

// Close marks the outbox closed. Safe to call multiple times.
func (o *ConsumerOutbox) Close() {
	select {
	case <-o.closed:
	default:
		close(o.closed)
	}
}

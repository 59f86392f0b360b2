package broker

import "sync"

// fakeConn is an in-process stand-in for *websocket.Conn: inbound
// frames are fed via feed(), outbound frames land in sent() in order.
// Used so the connection-handler state machines can be exercised
// end-to-end without a real network socket.
type fakeConn struct {
	mu     sync.Mutex
	inbox  chan []byte
	outbox [][]byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 64)}
}

func (c *fakeConn) feed(raw []byte) {
	c.inbox <- raw
}

func (c *fakeConn) closeInbox() {
	close(c.inbox)
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	raw, ok := <-c.inbox
	if !ok {
		return 0, nil, errConnClosed
	}
	return 1, raw, nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.outbox = append(c.outbox, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.outbox))
	copy(out, c.outbox)
	return out
}

type fakeConnError struct{ msg string }

func (e *fakeConnError) Error() string { return e.msg }

var errConnClosed = &fakeConnError{"fake connection closed"}

package controller

import (
	"sync"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// In-memory transport used by the unit tests
// --------------------------------------------------------------------------

type fakeTransport struct {
	mu        sync.Mutex
	handler   transport.HandleFunc
	listening bool
	closed    bool
	conns     []*fakeConn
	listenErr error
}

func (t *fakeTransport) RegisterHandler(handler transport.HandleFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *fakeTransport) Listen(common.TransportConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listenErr != nil {
		return t.listenErr
	}
	t.listening = true
	return nil
}

func (t *fakeTransport) Addr() string { return "fake" }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.listening = false
	conns := append([]*fakeConn(nil), t.conns...)
	t.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
	return nil
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *fakeTransport) isListening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// newConn creates a connection whose outgoing messages are recorded
func (t *fakeTransport) newConn() *fakeConn {
	c := &fakeConn{id: uuid.NewString(), transport: t}
	t.mu.Lock()
	t.conns = append(t.conns, c)
	t.mu.Unlock()
	return c
}

// deliver passes msg from conn to the registered handler
func (t *fakeTransport) deliver(conn *fakeConn, msg *common.Message) {
	b, err := serializer.NewJSONSerializer().Serialize(*msg)
	if err != nil {
		panic(err)
	}
	t.mu.Lock()
	handler := t.handler
	t.mu.Unlock()
	handler(conn, b)
}

type fakeConn struct {
	id        string
	transport *fakeTransport

	mu        sync.Mutex
	sent      []common.Message
	closed    bool
	observers []func()
	onSend    func(msg common.Message)
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(b []byte) error {
	msg := common.Message{}
	if err := serializer.NewJSONSerializer().Deserialize(b, &msg); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return transport.ErrNotConnected
	}
	c.sent = append(c.sent, msg)
	onSend := c.onSend
	c.mu.Unlock()

	if onSend != nil {
		onSend(msg)
	}
	return nil
}

func (c *fakeConn) OnClose(fn func()) {
	c.mu.Lock()
	if !c.closed {
		c.observers = append(c.observers, fn)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	fn()
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	observers := c.observers
	c.observers = nil
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
	return nil
}

func (c *fakeConn) setOnSend(fn func(msg common.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSend = fn
}

// messages returns the types of all messages sent on the connection
func (c *fakeConn) messages() []common.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]common.Message(nil), c.sent...)
}

func (c *fakeConn) count(t common.MessageType) int {
	n := 0
	for _, m := range c.messages() {
		if m.MsgType == t {
			n++
		}
	}
	return n
}

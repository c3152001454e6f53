package base

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

var errConnectionClosed = errors.New("connection closed")

// connection implements transport.IConnection on top of a net.Conn
type connection struct {
	id      string
	conn    net.Conn
	timeout time.Duration

	writeMu sync.Mutex    // Protects writes to the connection
	nextSeq atomic.Uint64 // Sequence number of the next outgoing frame
	lastSeq uint64        // Sequence number of the last received frame (reader goroutine only)

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}

	observersMu sync.Mutex
	observers   []func()
}

func newConnection(conn net.Conn, timeout time.Duration) *connection {
	return &connection{
		id:      uuid.NewString(),
		conn:    conn,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnection)
// --------------------------------------------------------------------------

func (c *connection) ID() string {
	return c.id
}

func (c *connection) Send(msg []byte) error {
	if c.closed.Load() {
		return transport.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}

	if err := writeFrame(c.conn, c.nextSeq.Add(1), msg); err != nil {
		return err
	}
	common.FramesSent.Inc()
	return nil
}

func (c *connection) OnClose(fn func()) {
	c.observersMu.Lock()
	if !c.closed.Load() {
		c.observers = append(c.observers, fn)
		c.observersMu.Unlock()
		return
	}
	c.observersMu.Unlock()
	fn()
}

func (c *connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.observersMu.Lock()
		c.closed.Store(true)
		observers := c.observers
		c.observers = nil
		c.observersMu.Unlock()

		err = c.conn.Close()
		close(c.done)

		for _, fn := range observers {
			fn()
		}
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop delivers incoming frames to handler until the connection fails.
// It closes the connection (and thereby notifies the observers) before returning.
func (c *connection) readLoop(handler transport.HandleFunc, pool *sync.Pool) {
	buf := pool.Get().([]byte)
	defer func() {
		pool.Put(buf)
		_ = c.Close()
	}()

	for {
		seq, data, err := readFrame(c.conn, buf)
		if err != nil {
			switch {
			case c.closed.Load():
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				Logger.Infof("Connection %s closed by remote", c.id)
			default:
				Logger.Warningf("Connection %s failed: %v", c.id, err)
			}
			return
		}

		if seq <= c.lastSeq {
			Logger.Warningf("Connection %s: out of order frame %d (last %d)", c.id, seq, c.lastSeq)
		}
		c.lastSeq = seq

		common.FramesReceived.Inc()
		if handler != nil {
			handler(c, data)
		}
	}
}

// newBufferPool creates a pool of read buffers of the given size
func newBufferPool(bufferSize int) *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			return make([]byte, bufferSize)
		},
	}
}

package base

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.TransportConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the listening side independent of the transport medium
type serverTransport struct {
	connector  IServerConnector
	handler    transport.HandleFunc
	config     common.TransportConfig
	listener   net.Listener
	listenerMu sync.RWMutex
	conns      *xsync.MapOf[string, *connection]
	bufferPool *sync.Pool
	closed     atomic.Bool
	wg         sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the given read buffer size
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IControllerTransport {
	return &serverTransport{
		connector:  connector,
		conns:      xsync.NewMapOf[string, *connection](),
		bufferPool: newBufferPool(bufferSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IControllerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.HandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.TransportConfig) error {
	if t.closed.Load() {
		return fmt.Errorf("transport is closed")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.listenerMu.Lock()
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s listener on %s", t.connector.GetName(), listener.Addr())

	t.wg.Add(1)
	go t.acceptLoop(listener)
	return nil
}

func (t *serverTransport) Addr() string {
	t.listenerMu.RLock()
	defer t.listenerMu.RUnlock()
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *serverTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	var err error
	t.listenerMu.RLock()
	if t.listener != nil {
		err = t.listener.Close()
	}
	t.listenerMu.RUnlock()

	t.conns.Range(func(id string, conn *connection) bool {
		_ = conn.Close()
		return true
	})

	t.wg.Wait()
	Logger.Infof("Stopped %s listener", t.connector.GetName())
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop accepts connections until the listener is closed
func (t *serverTransport) acceptLoop(listener net.Listener) {
	defer t.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Errorf("Failed to upgrade connection: %v", err)
			_ = conn.Close()
			continue
		}

		c := newConnection(conn, t.config.Timeout())
		t.conns.Store(c.ID(), c)
		c.OnClose(func() { t.conns.Delete(c.ID()) })

		// a connection accepted during Close must not outlive the transport
		if t.closed.Load() {
			_ = c.Close()
			return
		}

		Logger.Debugf("Accepted connection %s from %s", c.ID(), conn.RemoteAddr())
		go c.readLoop(t.handler, t.bufferPool)
	}
}

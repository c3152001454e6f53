package base

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the dialing side independent of the transport medium
type clientTransport struct {
	connector  IClientConnector
	handler    transport.HandleFunc
	conn       *connection
	connMu     sync.RWMutex // Protects conn
	bufferPool *sync.Pool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector, bufferSize int) transport.IPeerTransport {
	return &clientTransport{
		connector:  connector,
		bufferPool: newBufferPool(bufferSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IPeerTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) RegisterHandler(handler transport.HandleFunc) {
	t.handler = handler
}

func (t *clientTransport) Connect(config common.TransportConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	// Connect to the endpoint
	conn, err := t.connector.Connect(config.Endpoint, config.Timeout())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %v", config.Endpoint, err)
	}

	c := newConnection(conn, config.Timeout())
	c.OnClose(func() {
		t.connMu.Lock()
		if t.conn == c {
			t.conn = nil
		}
		t.connMu.Unlock()
	})

	// Replace the previous connection
	t.connMu.Lock()
	previous := t.conn
	t.conn = c
	t.connMu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())

	go c.readLoop(t.handler, t.bufferPool)
	return nil
}

func (t *clientTransport) Connected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.conn != nil
}

func (t *clientTransport) Send(msg []byte) error {
	t.connMu.RLock()
	c := t.conn
	t.connMu.RUnlock()

	if c == nil {
		return transport.ErrNotConnected
	}
	return c.Send(msg)
}

func (t *clientTransport) Close() error {
	t.connMu.Lock()
	c := t.conn
	t.conn = nil
	t.connMu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

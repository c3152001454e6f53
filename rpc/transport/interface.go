package transport

import (
	"errors"

	"github.com/ValentinKolb/dState/rpc/common"
)

// ErrNotConnected is returned when sending without an established connection
var ErrNotConnected = errors.New("transport not connected")

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// IConnection is a single established, message oriented connection.
type IConnection interface {
	// ID uniquely identifies the connection
	ID() string
	// Send writes one message. It is safe for concurrent use.
	Send(msg []byte) error
	// OnClose registers fn to be called once when the connection terminates
	// (closed locally, closed by the remote side or broken). If the connection
	// is already closed, fn is called immediately.
	OnClose(fn func())
	// Close terminates the connection
	Close() error
}

// HandleFunc is called by a transport for every received message.
// Messages of one connection are delivered sequentially in the order they were sent.
// msg is only valid during the call and must not be retained.
type HandleFunc func(conn IConnection, msg []byte)

// --------------------------------------------------------------------------
// Controller Transport
// --------------------------------------------------------------------------

// IControllerTransport is the listening side used by the controller process
type IControllerTransport interface {
	// RegisterHandler registers the handler for all incoming messages.
	// It must be called before Listen.
	RegisterHandler(handler HandleFunc)
	// Listen starts accepting connections in the background and returns once the listener is ready
	Listen(config common.TransportConfig) error
	// Addr returns the address the transport listens on (empty before Listen)
	Addr() string
	// Close stops listening and closes all accepted connections
	Close() error
}

// --------------------------------------------------------------------------
// Peer Transport
// --------------------------------------------------------------------------

// IPeerTransport is the dialing side used by the peer process
type IPeerTransport interface {
	// RegisterHandler registers the handler for all incoming messages.
	// It must be called before Connect.
	RegisterHandler(handler HandleFunc)
	// Connect dials the controller. An existing connection is replaced.
	Connect(config common.TransportConfig) error
	// Connected reports whether a connection is established
	Connected() bool
	// Send writes a message on the current connection (ErrNotConnected if there is none)
	Send(msg []byte) error
	// Close closes the current connection. Connect may be called again afterwards.
	Close() error
}

package ws

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/ValentinKolb/dState/rpc/transport/base"
	"github.com/coder/websocket"
)

// clientConnector implements the IClientConnector interface for websockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "ws"
}

func (c *clientConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	url, err := dialURL(endpoint)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	return websocket.NetConn(context.Background(), conn, websocket.MessageBinary), nil
}

func (c *clientConnector) UpgradeConnection(net.Conn, common.TransportConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWSClientTransport creates a new websocket peer transport
func NewWSClientTransport() transport.IPeerTransport {
	return base.NewBaseClientTransport(&clientConnector{}, defaultBufferSize)
}

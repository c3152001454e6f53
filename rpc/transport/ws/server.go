package ws

import (
	"fmt"
	"net"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/ValentinKolb/dState/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	defaultBufferSize = 64 * 1024        // 64 KB
	maxMessageSize    = 64 * 1024 * 1024 // one websocket message carries at most one frame part
)

// serverConnector implements the IServerConnector interface for websockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "ws"
}

func (c *serverConnector) Listen(config common.TransportConfig) (net.Listener, error) {
	addr, path, err := parseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}

	return newListener(ln, path), nil
}

func (c *serverConnector) UpgradeConnection(net.Conn, common.TransportConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewWSServerTransport creates a new websocket controller transport
func NewWSServerTransport() transport.IControllerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, defaultBufferSize)
}

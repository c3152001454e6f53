package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("controller")

// GetStoreFromPeer listens for a peer and returns a proxy to its state
// container once the first peer announced itself. It fails with
// ErrConnectionTimeout if no peer connects within config.ConnectTimeout.
//
// Usage:
//
//	store, err := controller.GetStoreFromPeer(
//		ctx,
//		config,
//		unix.NewUnixDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	err = store.Commit("increment", 1, nil)
func GetStoreFromPeer(
	ctx context.Context,
	config common.ControllerConfig,
	transport transport.IControllerTransport,
	serializer serializer.IRPCSerializer,
) (IStoreProxy, error) {
	if common.DetectProcessType(config.ProcessType) == common.ProcessTypePeer {
		return nil, ErrWrongProcess
	}

	p := &storeProxy{
		transport:  transport,
		serializer: serializer,
		connected:  make(chan struct{}),
	}
	transport.RegisterHandler(p.handle)

	if err := transport.Listen(config.Transport); err != nil {
		return nil, fmt.Errorf("failed to listen for peer: %w", err)
	}
	Logger.Infof("Waiting for peer\n%s", config.String())

	timer := time.NewTimer(config.GetConnectTimeout())
	defer timer.Stop()

	select {
	case <-p.connected:
		return p, nil
	case <-timer.C:
		_ = p.Close()
		return nil, ErrConnectionTimeout
	case <-ctx.Done():
		_ = p.Close()
		return nil, ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Proxy
// --------------------------------------------------------------------------

// storeProxy implements IStoreProxy
type storeProxy struct {
	transport  transport.IControllerTransport
	serializer serializer.IRPCSerializer

	// closed is set once the proxy stops accepting peers (timeout or Close)
	closed atomic.Bool

	connMu    sync.Mutex // Protects conn
	conn      transport.IConnection
	bindOnce  sync.Once
	connected chan struct{}

	getMu     sync.Mutex // Serializes GetState calls
	pendingMu sync.Mutex // Protects pending
	pending   *pendingRequest
}

// pendingRequest is the single GetState call waiting for its reply
type pendingRequest struct {
	conn   transport.IConnection
	result chan stateResult
}

type stateResult struct {
	state any
	err   error
}

// --------------------------------------------------------------------------
// Interface Methods (docu see controller.IStoreProxy)
// --------------------------------------------------------------------------

func (p *storeProxy) Commit(mutationType string, payload any, opts *state.Options) error {
	msg, err := common.NewCommitMessage(mutationType, payload, opts)
	if err != nil {
		return err
	}
	return p.send(p.current(), msg)
}

func (p *storeProxy) Dispatch(actionType string, payload any, opts *state.Options) error {
	msg, err := common.NewDispatchMessage(actionType, payload, opts)
	if err != nil {
		return err
	}
	return p.send(p.current(), msg)
}

func (p *storeProxy) GetState(ctx context.Context) (any, error) {
	p.getMu.Lock()
	defer p.getMu.Unlock()

	conn := p.current()
	if conn == nil {
		return nil, ErrNotConnected
	}

	req := &pendingRequest{conn: conn, result: make(chan stateResult, 1)}
	p.pendingMu.Lock()
	p.pending = req
	p.pendingMu.Unlock()
	defer p.dropPending(req)

	// the peer may have terminated before the request was registered
	if p.current() != conn {
		return nil, ErrNotConnected
	}

	if err := p.send(conn, common.NewGetStateRequest()); err != nil {
		return nil, err
	}

	select {
	case res := <-req.result:
		return res.state, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *storeProxy) ClearState() error {
	return p.send(p.current(), common.NewClearStateMessage())
}

func (p *storeProxy) Close() error {
	p.closed.Store(true)
	return p.transport.Close()
}

// --------------------------------------------------------------------------
// Message Handling
// --------------------------------------------------------------------------

// handle is called by the transport for every message of every connection
func (p *storeProxy) handle(conn transport.IConnection, raw []byte) {
	msg := common.Message{}
	if err := p.serializer.Deserialize(raw, &msg); err != nil {
		Logger.Warningf("failed to deserialize message: %v", err)
		return
	}

	switch msg.MsgType {
	case common.MsgTConnect:
		if p.closed.Load() {
			Logger.Debugf("ignoring connect from %s, no longer accepting peers", conn.ID())
			return
		}
		p.bind(conn)

	case common.MsgTGetState:
		p.resolve(conn, &msg)

	case common.MsgTError:
		Logger.Warningf("peer reported an error: %s", msg.Err)

	default:
		Logger.Warningf("unexpected message type: %s", msg.MsgType)
	}
}

// bind makes conn the peer connection and acknowledges it
func (p *storeProxy) bind(conn transport.IConnection) {
	p.connMu.Lock()
	previous := p.conn
	p.conn = conn
	p.connMu.Unlock()

	if previous != conn {
		if previous != nil {
			Logger.Infof("Peer connection %s replaces %s", conn.ID(), previous.ID())
		} else {
			Logger.Infof("Peer connected (%s)", conn.ID())
		}
		conn.OnClose(func() { p.unbind(conn) })
	}

	if err := p.send(conn, common.NewConnectReceivedMessage()); err != nil {
		Logger.Warningf("failed to acknowledge peer %s: %v", conn.ID(), err)
		return
	}
	common.Handshakes.Inc()

	p.bindOnce.Do(func() { close(p.connected) })
}

// unbind is called when conn terminated
func (p *storeProxy) unbind(conn transport.IConnection) {
	p.connMu.Lock()
	if p.conn == conn {
		p.conn = nil
		Logger.Infof("Peer disconnected (%s)", conn.ID())
	}
	p.connMu.Unlock()

	p.pendingMu.Lock()
	req := p.pending
	if req != nil && req.conn == conn {
		p.pending = nil
	} else {
		req = nil
	}
	p.pendingMu.Unlock()

	if req != nil {
		req.result <- stateResult{err: ErrNotConnected}
	}
}

// resolve hands a GetState reply to the waiting call
func (p *storeProxy) resolve(conn transport.IConnection, msg *common.Message) {
	p.pendingMu.Lock()
	req := p.pending
	if req != nil && req.conn == conn {
		p.pending = nil
	} else {
		req = nil
	}
	p.pendingMu.Unlock()

	if req == nil {
		Logger.Warningf("dropping unsolicited state reply from %s", conn.ID())
		return
	}

	s, err := msg.DecodeState()
	req.result <- stateResult{state: s, err: err}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// current returns the bound peer connection (nil if there is none)
func (p *storeProxy) current() transport.IConnection {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	return p.conn
}

// dropPending removes req if it is still the pending request
func (p *storeProxy) dropPending(req *pendingRequest) {
	p.pendingMu.Lock()
	if p.pending == req {
		p.pending = nil
	}
	p.pendingMu.Unlock()
}

// send serializes msg and writes it to conn
func (p *storeProxy) send(conn transport.IConnection, msg *common.Message) error {
	if conn == nil {
		return ErrNotConnected
	}

	b, err := p.serializer.Serialize(*msg)
	if err != nil {
		return err
	}

	if err := conn.Send(b); err != nil {
		if errors.Is(err, transport.ErrNotConnected) {
			return ErrNotConnected
		}
		return fmt.Errorf("failed to send %s: %w", msg.MsgType, err)
	}
	return nil
}

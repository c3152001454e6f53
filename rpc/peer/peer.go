package peer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("peer")

// Peer is the side of the bridge living next to the state container. It dials
// the controller, announces itself until acknowledged and executes the
// commands it receives on the container.
//
// Usage:
//
//	p := peer.NewPeer(config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
//	defer p.Close()
//
//	container, err := state.New(state.Config{
//		...
//		Plugins: []state.Plugin{persist.Create(persist.Options{IPC: true}, p)},
//	})
type Peer struct {
	config     common.PeerConfig
	transport  transport.IPeerTransport
	serializer serializer.IRPCSerializer

	mu        sync.Mutex
	container state.IContainer
	clear     func() error
	cancel    context.CancelFunc
	done      chan struct{}

	ackMu  sync.Mutex // Protects acked and ackSet
	acked  chan struct{}
	ackSet bool
}

// NewPeer creates a peer. It does nothing until Activate is called.
func NewPeer(config common.PeerConfig, transport transport.IPeerTransport, serializer serializer.IRPCSerializer) *Peer {
	return &Peer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		acked:      make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see persist.Bridge)
// --------------------------------------------------------------------------

// Activate registers the message handler and starts the heartbeat.
// It returns immediately, the controller does not have to be running yet.
func (p *Peer) Activate(container state.IContainer, clear func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.container != nil {
		return fmt.Errorf("peer is already active")
	}
	p.container = container
	p.clear = clear

	p.transport.RegisterHandler(p.handle)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.heartbeat(ctx, p.done)

	Logger.Infof("Peer activated\n%s", p.config.String())
	return nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Acknowledged returns a channel that is closed once the controller acknowledged the peer.
// With Reconnect set, a new channel is used after the connection was lost.
func (p *Peer) Acknowledged() <-chan struct{} {
	p.ackMu.Lock()
	defer p.ackMu.Unlock()
	return p.acked
}

// Close stops the heartbeat and closes the connection to the controller
func (p *Peer) Close() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return p.transport.Close()
}

// --------------------------------------------------------------------------
// Heartbeat
// --------------------------------------------------------------------------

// heartbeat sends a Connect message right away and then every interval
// until the controller acknowledges it or ctx is cancelled
func (p *Peer) heartbeat(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.GetHeartbeatInterval())
	defer ticker.Stop()

	for {
		p.beat()
		if !p.config.Reconnect && p.isAcknowledged() {
			return
		}

		// with Reconnect set the loop keeps watching the connection
		var ack <-chan struct{}
		if !p.config.Reconnect {
			ack = p.Acknowledged()
		}

		select {
		case <-ctx.Done():
			return
		case <-ack:
		case <-ticker.C:
		}
	}
}

// beat announces the peer unless it is acknowledged on a live connection
func (p *Peer) beat() {
	if p.isAcknowledged() {
		if !p.config.Reconnect || p.transport.Connected() {
			return
		}
		Logger.Infof("Connection to the controller lost, announcing again")
		p.rearm()
	}
	p.announce()
}

// announce (re)connects the transport if necessary and sends a Connect message
func (p *Peer) announce() {
	if !p.transport.Connected() {
		if err := p.transport.Connect(p.config.Transport); err != nil {
			Logger.Debugf("controller not reachable: %v", err)
			return
		}
	}

	// the ack handler waits for ackMu, so no Connect follows an acknowledgement
	p.ackMu.Lock()
	defer p.ackMu.Unlock()
	if p.ackSet {
		return
	}
	if err := p.send(common.NewConnectMessage()); err != nil {
		Logger.Debugf("failed to send connect message: %v", err)
	}
}

// --------------------------------------------------------------------------
// Message Handling
// --------------------------------------------------------------------------

// handle is called by the transport for every message from the controller
func (p *Peer) handle(conn transport.IConnection, raw []byte) {
	msg := common.Message{}
	if err := p.serializer.Deserialize(raw, &msg); err != nil {
		Logger.Warningf("failed to deserialize message: %v", err)
		return
	}

	switch msg.MsgType {
	case common.MsgTConnectReceived:
		p.acknowledge()

	case common.MsgTCommit, common.MsgTDispatch:
		if err := p.invoke(&msg); err != nil {
			Logger.Warningf("%s %q failed: %v", msg.MsgType, msg.Type, err)
		}

	case common.MsgTGetState:
		resp := common.NewGetStateResponse(p.container.State())
		b, err := p.serializer.Serialize(*resp)
		if err != nil {
			Logger.Errorf("failed to serialize state: %v", err)
			return
		}
		if err := conn.Send(b); err != nil {
			Logger.Warningf("failed to send state: %v", err)
		}

	case common.MsgTClearState:
		if err := p.clear(); err != nil {
			Logger.Warningf("failed to clear the persisted state: %v", err)
		}

	case common.MsgTError:
		Logger.Warningf("controller reported an error: %s", msg.Err)

	default:
		Logger.Warningf("unexpected message type: %s", msg.MsgType)
	}
}

// invoke executes a Commit or Dispatch message on the container
func (p *Peer) invoke(msg *common.Message) error {
	payload, err := msg.DecodePayload()
	if err != nil {
		return err
	}
	opts, err := msg.DecodeOptions()
	if err != nil {
		return err
	}

	if msg.MsgType == common.MsgTCommit {
		return p.container.Commit(msg.Type, payload, opts)
	}
	return p.container.Dispatch(msg.Type, payload, opts)
}

// acknowledge marks the peer as acknowledged, repeated calls are ignored
func (p *Peer) acknowledge() {
	p.ackMu.Lock()
	defer p.ackMu.Unlock()
	if p.ackSet {
		return
	}
	p.ackSet = true
	close(p.acked)
	Logger.Infof("Controller acknowledged the connection")
}

func (p *Peer) isAcknowledged() bool {
	p.ackMu.Lock()
	defer p.ackMu.Unlock()
	return p.ackSet
}

// rearm resets the acknowledgement after the connection was lost
func (p *Peer) rearm() {
	p.ackMu.Lock()
	defer p.ackMu.Unlock()
	if p.ackSet {
		p.acked = make(chan struct{})
		p.ackSet = false
	}
}

// send serializes msg and writes it to the current connection
func (p *Peer) send(msg *common.Message) error {
	b, err := p.serializer.Serialize(*msg)
	if err != nil {
		return err
	}
	return p.transport.Send(b)
}

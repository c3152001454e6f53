package transport_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/transport"
	"github.com/ValentinKolb/dState/rpc/transport/tcp"
	"github.com/ValentinKolb/dState/rpc/transport/unix"
	"github.com/ValentinKolb/dState/rpc/transport/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Setup
// --------------------------------------------------------------------------

type transportCase struct {
	name       string
	endpoint   func(t *testing.T) string
	controller func() transport.IControllerTransport
	peer       func() transport.IPeerTransport
}

var transportCases = []transportCase{
	{
		name:       "unix",
		endpoint:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "dstate.sock") },
		controller: unix.NewUnixDefaultServerTransport,
		peer:       unix.NewUnixClientTransport,
	},
	{
		name:       "tcp",
		endpoint:   func(t *testing.T) string { return "127.0.0.1:0" },
		controller: tcp.NewTCPServerTransport,
		peer:       tcp.NewTCPClientTransport,
	},
	{
		name:       "ws",
		endpoint:   func(t *testing.T) string { return "127.0.0.1:0" },
		controller: ws.NewWSServerTransport,
		peer:       ws.NewWSClientTransport,
	},
}

// recorder collects received messages
type recorder struct {
	mu    sync.Mutex
	msgs  []string
	conns []transport.IConnection
}

func (r *recorder) handle(conn transport.IConnection, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, string(msg))
	r.conns = append(r.conns, conn)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) lastConn() transport.IConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return nil
	}
	return r.conns[len(r.conns)-1]
}

// start creates a listening controller and a peer connected to it
func start(t *testing.T, tc transportCase, onController, onPeer transport.HandleFunc) (transport.IControllerTransport, transport.IPeerTransport) {
	t.Helper()

	controller := tc.controller()
	controller.RegisterHandler(onController)
	require.NoError(t, controller.Listen(common.TransportConfig{Endpoint: tc.endpoint(t), TimeoutSecond: 5}))
	t.Cleanup(func() { _ = controller.Close() })

	endpoint := controller.Addr()

	peer := tc.peer()
	peer.RegisterHandler(onPeer)
	require.NoError(t, peer.Connect(common.TransportConfig{Endpoint: endpoint, TimeoutSecond: 5}))
	t.Cleanup(func() { _ = peer.Close() })

	return controller, peer
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestTransports(t *testing.T) {
	for _, tc := range transportCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Run("Ordering", func(t *testing.T) { testOrdering(t, tc) })
			t.Run("Reply", func(t *testing.T) { testReply(t, tc) })
			t.Run("RemoteClose", func(t *testing.T) { testRemoteClose(t, tc) })
			t.Run("PeerLostController", func(t *testing.T) { testPeerLostController(t, tc) })
			t.Run("NotConnected", func(t *testing.T) { testNotConnected(t, tc) })
		})
	}
}

func testOrdering(t *testing.T, tc transportCase) {
	rec := &recorder{}
	_, peer := start(t, tc, rec.handle, nil)

	const n = 200
	want := make([]string, n)
	for i := 0; i < n; i++ {
		want[i] = fmt.Sprintf("msg-%d", i)
		require.NoError(t, peer.Send([]byte(want[i])))
	}

	require.Eventually(t, func() bool { return len(rec.messages()) == n }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, rec.messages())
}

func testReply(t *testing.T, tc transportCase) {
	peerRec := &recorder{}
	echo := func(conn transport.IConnection, msg []byte) {
		_ = conn.Send(append([]byte("echo:"), msg...))
	}
	_, peer := start(t, tc, echo, peerRec.handle)

	require.NoError(t, peer.Send([]byte("ping")))
	require.Eventually(t, func() bool { return len(peerRec.messages()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"echo:ping"}, peerRec.messages())
}

func testRemoteClose(t *testing.T, tc transportCase) {
	rec := &recorder{}
	_, peer := start(t, tc, rec.handle, nil)

	require.NoError(t, peer.Send([]byte("hello")))
	require.Eventually(t, func() bool { return rec.lastConn() != nil }, 5*time.Second, 10*time.Millisecond)

	closed := make(chan struct{})
	rec.lastConn().OnClose(func() { close(closed) })

	require.NoError(t, peer.Close())
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not observe the closed connection")
	}
	assert.ErrorIs(t, rec.lastConn().Send([]byte("late")), transport.ErrNotConnected)
}

func testPeerLostController(t *testing.T, tc transportCase) {
	controller, peer := start(t, tc, nil, nil)
	require.True(t, peer.Connected())

	require.NoError(t, controller.Close())
	require.Eventually(t, func() bool { return !peer.Connected() }, 5*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, peer.Send([]byte("x")), transport.ErrNotConnected)
}

func testNotConnected(t *testing.T, tc transportCase) {
	peer := tc.peer()
	assert.False(t, peer.Connected())
	assert.ErrorIs(t, peer.Send([]byte("x")), transport.ErrNotConnected)
	assert.NoError(t, peer.Close())

	err := peer.Connect(common.TransportConfig{})
	assert.Error(t, err, "empty endpoint must be rejected")
}

func TestControllerAddrBeforeListen(t *testing.T) {
	for _, tc := range transportCases {
		assert.Empty(t, tc.controller().Addr(), tc.name)
	}
}

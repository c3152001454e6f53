package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/dState/lib/persist"
	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/lib/store/lstore"
	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/controller"
	"github.com/ValentinKolb/dState/rpc/peer"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/ValentinKolb/dState/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeOverTCP(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		t.Run(name, func(t *testing.T) {
			s, err := serializer.ByName(name)
			require.NoError(t, err)
			testBridge(t, s)
		})
	}
}

func testBridge(t *testing.T, s serializer.IRPCSerializer) {
	// the controller listens on a random port, the peer needs to know it
	ctrlTransport := tcp.NewTCPServerTransport()
	endpoint := make(chan string, 1)

	type result struct {
		proxy controller.IStoreProxy
		err   error
	}
	done := make(chan result, 1)
	go func() {
		proxy, err := controller.GetStoreFromPeer(
			context.Background(),
			common.ControllerConfig{
				Transport:      common.TransportConfig{Endpoint: "127.0.0.1:0", TimeoutSecond: 5},
				ProcessType:    common.ProcessTypeController,
				ConnectTimeout: 5 * time.Second,
			},
			ctrlTransport,
			s,
		)
		done <- result{proxy, err}
	}()

	go func() {
		for ctrlTransport.Addr() == "" {
			time.Sleep(time.Millisecond)
		}
		endpoint <- ctrlTransport.Addr()
	}()

	storage := lstore.NewLocalStore()
	p := peer.NewPeer(common.PeerConfig{
		Transport:         common.TransportConfig{Endpoint: <-endpoint, TimeoutSecond: 5},
		HeartbeatInterval: 20 * time.Millisecond,
	}, tcp.NewTCPClientTransport(), s)
	defer p.Close()

	container, err := state.New(state.Config{
		State: map[string]any{"todos": []any{}},
		Mutations: map[string]state.MutationFunc{
			"add": func(st any, payload any) (any, error) {
				m := st.(map[string]any)
				m["todos"] = append(m["todos"].([]any), payload)
				return m, nil
			},
		},
		Plugins: []state.Plugin{persist.Create(persist.Options{Storage: storage, IPC: true}, p)},
	})
	require.NoError(t, err)

	res := <-done
	require.NoError(t, res.err)
	proxy := res.proxy
	defer proxy.Close()

	select {
	case <-p.Acknowledged():
	case <-time.After(5 * time.Second):
		t.Fatal("peer was not acknowledged")
	}

	// commands are applied in order and persisted by the peer
	require.NoError(t, proxy.Commit("add", "a", nil))
	require.NoError(t, proxy.Commit("add", "b", nil))

	want := map[string]any{"todos": []any{"a", "b"}}
	require.Eventually(t, func() bool {
		got, err := proxy.GetState(context.Background())
		return err == nil && assert.ObjectsAreEqual(want, got)
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, container.State())

	persisted, ok, err := storage.Get(persist.DefaultStorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, persisted)

	// clear removes the snapshot, the live state is untouched
	require.NoError(t, proxy.ClearState())
	require.Eventually(t, func() bool {
		_, ok, err := storage.Get(persist.DefaultStorageKey)
		return err == nil && !ok
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, want, container.State())

	// the peer terminates
	require.NoError(t, p.Close())
	require.Eventually(t, func() bool {
		return proxy.Commit("add", "c", nil) == controller.ErrNotConnected
	}, 5*time.Second, 10*time.Millisecond)
}

func TestNoPeerTimesOut(t *testing.T) {
	_, err := controller.GetStoreFromPeer(
		context.Background(),
		common.ControllerConfig{
			Transport:      common.TransportConfig{Endpoint: "127.0.0.1:0"},
			ProcessType:    common.ProcessTypeController,
			ConnectTimeout: 100 * time.Millisecond,
		},
		tcp.NewTCPServerTransport(),
		serializer.NewJSONSerializer(),
	)
	assert.ErrorIs(t, err, controller.ErrConnectionTimeout)
}

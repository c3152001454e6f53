package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/rpc/common"
	"github.com/ValentinKolb/dState/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Setup
// --------------------------------------------------------------------------

func testConfig(timeout time.Duration) common.ControllerConfig {
	return common.ControllerConfig{
		ProcessType:    common.ProcessTypeController,
		ConnectTimeout: timeout,
	}
}

// connect runs GetStoreFromPeer and lets a fake peer announce itself
func connect(t *testing.T) (IStoreProxy, *fakeTransport, *fakeConn) {
	t.Helper()

	tr := &fakeTransport{}
	conn := tr.newConn()

	go func() {
		for !tr.isListening() {
			time.Sleep(time.Millisecond)
		}
		tr.deliver(conn, common.NewConnectMessage())
	}()

	proxy, err := GetStoreFromPeer(context.Background(), testConfig(5*time.Second), tr, serializer.NewJSONSerializer())
	require.NoError(t, err)
	t.Cleanup(func() { _ = proxy.Close() })
	return proxy, tr, conn
}

// --------------------------------------------------------------------------
// Handshake
// --------------------------------------------------------------------------

func TestWrongProcess(t *testing.T) {
	config := testConfig(time.Second)
	config.ProcessType = common.ProcessTypePeer

	_, err := GetStoreFromPeer(context.Background(), config, &fakeTransport{}, serializer.NewJSONSerializer())
	assert.ErrorIs(t, err, ErrWrongProcess)
}

func TestWrongProcessFromEnvironment(t *testing.T) {
	t.Setenv(common.ProcessTypeEnv, "peer")

	config := testConfig(time.Second)
	config.ProcessType = ""

	_, err := GetStoreFromPeer(context.Background(), config, &fakeTransport{}, serializer.NewJSONSerializer())
	assert.ErrorIs(t, err, ErrWrongProcess)
}

func TestListenError(t *testing.T) {
	tr := &fakeTransport{listenErr: errors.New("address in use")}

	_, err := GetStoreFromPeer(context.Background(), testConfig(time.Second), tr, serializer.NewJSONSerializer())
	assert.Error(t, err)
}

func TestConnectTimeout(t *testing.T) {
	tr := &fakeTransport{}

	start := time.Now()
	_, err := GetStoreFromPeer(context.Background(), testConfig(50*time.Millisecond), tr, serializer.NewJSONSerializer())
	assert.ErrorIs(t, err, ErrConnectionTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.True(t, tr.isClosed(), "listener must be closed after a timeout")

	// a late peer is ignored
	late := tr.newConn()
	tr.deliver(late, common.NewConnectMessage())
	assert.Zero(t, late.count(common.MsgTConnectReceived))
}

func TestContextCancelled(t *testing.T) {
	tr := &fakeTransport{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := GetStoreFromPeer(ctx, testConfig(5*time.Second), tr, serializer.NewJSONSerializer())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, tr.isClosed())
}

func TestHandshakeAcknowledged(t *testing.T) {
	_, tr, conn := connect(t)

	assert.Equal(t, 1, conn.count(common.MsgTConnectReceived))

	// repeated heartbeats on the same connection are acknowledged again
	tr.deliver(conn, common.NewConnectMessage())
	assert.Equal(t, 2, conn.count(common.MsgTConnectReceived))
}

// --------------------------------------------------------------------------
// One-way commands
// --------------------------------------------------------------------------

func TestCommitAndDispatch(t *testing.T) {
	proxy, _, conn := connect(t)

	require.NoError(t, proxy.Commit("add", map[string]any{"title": "a"}, &state.Options{Silent: true}))
	require.NoError(t, proxy.Dispatch("load", nil, nil))
	require.NoError(t, proxy.ClearState())

	msgs := conn.messages()
	require.Len(t, msgs, 4)

	assert.Equal(t, common.MsgTCommit, msgs[1].MsgType)
	assert.Equal(t, "add", msgs[1].Type)
	payload, err := msgs[1].DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "a"}, payload)
	opts, err := msgs[1].DecodeOptions()
	require.NoError(t, err)
	assert.Equal(t, &state.Options{Silent: true}, opts)

	assert.Equal(t, common.MsgTDispatch, msgs[2].MsgType)
	assert.Equal(t, "load", msgs[2].Type)
	opts, err = msgs[2].DecodeOptions()
	require.NoError(t, err)
	assert.Nil(t, opts)

	assert.Equal(t, common.MsgTClearState, msgs[3].MsgType)
}

func TestNotConnectedAfterPeerTermination(t *testing.T) {
	proxy, _, conn := connect(t)

	require.NoError(t, conn.Close())

	assert.ErrorIs(t, proxy.Commit("add", nil, nil), ErrNotConnected)
	assert.ErrorIs(t, proxy.Dispatch("load", nil, nil), ErrNotConnected)
	assert.ErrorIs(t, proxy.ClearState(), ErrNotConnected)
	_, err := proxy.GetState(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestReconnectDeliversExactlyOnce(t *testing.T) {
	proxy, tr, conn := connect(t)

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, proxy.Commit("add", nil, nil), ErrNotConnected)

	next := tr.newConn()
	tr.deliver(next, common.NewConnectMessage())
	require.NoError(t, proxy.Commit("add", nil, nil))

	assert.Equal(t, 1, next.count(common.MsgTCommit))
	assert.Zero(t, conn.count(common.MsgTCommit))
}

func TestRebindToNewConnection(t *testing.T) {
	proxy, tr, first := connect(t)

	second := tr.newConn()
	tr.deliver(second, common.NewConnectMessage())
	assert.Equal(t, 1, second.count(common.MsgTConnectReceived))

	require.NoError(t, proxy.Commit("add", nil, nil))
	assert.Equal(t, 1, second.count(common.MsgTCommit))
	assert.Zero(t, first.count(common.MsgTCommit))

	// closing the replaced connection does not unbind the current one
	require.NoError(t, first.Close())
	assert.NoError(t, proxy.Commit("add", nil, nil))
}

// --------------------------------------------------------------------------
// GetState
// --------------------------------------------------------------------------

// answer makes conn reply to every GetState request with s
func answer(tr *fakeTransport, conn *fakeConn, s any) {
	conn.setOnSend(func(msg common.Message) {
		if msg.MsgType == common.MsgTGetState {
			go tr.deliver(conn, common.NewGetStateResponse(s))
		}
	})
}

func TestGetState(t *testing.T) {
	proxy, tr, conn := connect(t)
	answer(tr, conn, map[string]any{"count": 3})

	got, err := proxy.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 3.0}, got)
}

func TestGetStateSerialized(t *testing.T) {
	proxy, tr, conn := connect(t)
	answer(tr, conn, []any{"a", "b"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := proxy.GetState(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, []any{"a", "b"}, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, conn.count(common.MsgTGetState))
}

func TestGetStatePeerError(t *testing.T) {
	proxy, tr, conn := connect(t)
	conn.setOnSend(func(msg common.Message) {
		if msg.MsgType == common.MsgTGetState {
			resp := &common.Message{MsgType: common.MsgTGetState, Err: "boom"}
			go tr.deliver(conn, resp)
		}
	})

	_, err := proxy.GetState(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestGetStatePeerLost(t *testing.T) {
	proxy, _, conn := connect(t)
	conn.setOnSend(func(msg common.Message) {
		if msg.MsgType == common.MsgTGetState {
			go func() { _ = conn.Close() }()
		}
	})

	_, err := proxy.GetState(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGetStateContext(t *testing.T) {
	proxy, _, _ := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := proxy.GetState(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnsolicitedStateDropped(t *testing.T) {
	proxy, tr, conn := connect(t)

	// no request pending: the reply is dropped
	tr.deliver(conn, common.NewGetStateResponse(map[string]any{"stale": true}))

	answer(tr, conn, map[string]any{"fresh": true})
	got, err := proxy.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fresh": true}, got)
}

func TestCloseDropsPeer(t *testing.T) {
	proxy, tr, _ := connect(t)

	require.NoError(t, proxy.Close())
	assert.True(t, tr.isClosed())
	assert.ErrorIs(t, proxy.Commit("add", nil, nil), ErrNotConnected)
}

// Package controller implements the controller side of the bridge between a
// state container and a controller process.
//
// GetStoreFromPeer starts listening and blocks until a peer sends its first
// Connect message (WAITING_FOR_PEER → CONNECTED) or the connect timeout
// expires (WAITING_FOR_PEER → TIMED_OUT). Every Connect is acknowledged with
// ConnectReceived. A Connect on a new connection rebinds the proxy to that
// connection; after a timeout the listener is closed and late peers are
// ignored.
//
// The returned IStoreProxy forwards Commit, Dispatch and ClearState without
// waiting for a result and fails with ErrNotConnected while no peer is bound.
// GetState waits for the reply of the peer; only one GetState call is in
// flight at a time.
package controller

package controller

import (
	"context"
	"errors"

	"github.com/ValentinKolb/dState/lib/state"
)

var (
	// ErrNotConnected is returned when no peer is bound (or the bound peer terminated)
	ErrNotConnected = errors.New("no peer connected")
	// ErrConnectionTimeout is returned when no peer connected within the connect timeout
	ErrConnectionTimeout = errors.New("timed out waiting for the peer to connect")
	// ErrWrongProcess is returned when GetStoreFromPeer is called from a peer process
	ErrWrongProcess = errors.New("GetStoreFromPeer must be called from the controller process")
)

// IStoreProxy controls the state container of the bound peer
type IStoreProxy interface {
	// Commit asks the peer to run a mutation. It does not wait for the result.
	Commit(mutationType string, payload any, opts *state.Options) error
	// Dispatch asks the peer to run an action. It does not wait for the result.
	Dispatch(actionType string, payload any, opts *state.Options) error
	// GetState fetches the current state of the peer's container.
	// Concurrent calls are executed one after the other.
	GetState(ctx context.Context) (any, error)
	// ClearState asks the peer to delete its persisted snapshot
	ClearState() error
	// Close stops listening and drops the peer connection
	Close() error
}

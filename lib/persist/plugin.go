package persist

import (
	"github.com/ValentinKolb/dState/lib/state"
)

// Bridge connects a container to a remote controller process.
// It is implemented by the peer side of the rpc package.
type Bridge interface {
	// Activate starts the bridge for container. clear deletes the persisted snapshot.
	Activate(container state.IContainer, clear func() error) error
}

// Create returns a container plugin that
//
//  1. opens the store and checks it (unless DisableStorageCheck is set)
//  2. restores the persisted state and persists every change (unless Dev is set)
//  3. activates bridge (if IPC is set)
//
// Persistence and bridging are independent of each other.
func Create(opts Options, bridge Bridge) state.Plugin {
	return func(container state.IContainer) error {
		if opts.IPC && bridge == nil {
			return ErrMissingBridge
		}

		ps, err := New(opts, container)
		if err != nil {
			return err
		}

		if !ps.opts.DisableStorageCheck {
			if err := ps.CheckStorage(); err != nil {
				return err
			}
		}

		if !ps.opts.Dev {
			if err := ps.LoadInitialState(); err != nil {
				return err
			}
			ps.SubscribeOnChanges()
		}

		if ps.opts.IPC {
			if err := bridge.Activate(container, ps.ClearState); err != nil {
				return err
			}
		}

		Logger.Debugf("persistence plugin active\n%s", ps.opts)
		return nil
	}
}

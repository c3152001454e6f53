package persist

import (
	"fmt"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/lib/store"
	"github.com/ValentinKolb/dState/lib/store/fstore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("persist")

// storageCheckKey is written, read and deleted by CheckStorage
const storageCheckKey = "@@"

var persistWrites = metrics.NewCounter("dstate_persist_writes_total")

// PersistedState binds a state container to a store: it rehydrates the
// container on startup and writes a snapshot after every mutation.
type PersistedState struct {
	opts      Options
	container state.IContainer
	storage   store.IStore
	owned     bool // storage was opened by New and is closed by Close
}

// New resolves the options and opens the file store when opts.Storage is nil.
// The migrations of opts are run when the file store is opened (unless opts.Dev is set).
func New(opts Options, container state.IContainer) (*PersistedState, error) {
	ps := &PersistedState{
		opts:      opts.withDefaults(),
		container: container,
		storage:   opts.Storage,
	}

	if ps.storage == nil {
		var migrations store.Migrations
		if !ps.opts.Dev {
			migrations = ps.buildMigrations(opts.Migrations)
		}

		s, err := fstore.NewFileStore(store.Config{
			Name:           ps.opts.FileName,
			Dir:            ps.opts.StorageFileLocation,
			EncryptionKey:  ps.opts.EncryptionKey,
			Migrations:     migrations,
			ProjectVersion: ps.opts.ProjectVersion,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		ps.storage = s
		ps.owned = true
	} else if len(opts.Migrations) > 0 && !ps.opts.Dev {
		if err := store.RunMigrations(ps.storage, ps.buildMigrations(opts.Migrations), ps.opts.ProjectVersion); err != nil {
			return nil, fmt.Errorf("failed to migrate store: %w", err)
		}
	}

	return ps, nil
}

// Options returns the resolved options
func (ps *PersistedState) Options() Options {
	return ps.opts
}

// Storage returns the store the snapshot is kept in
func (ps *PersistedState) Storage() store.IStore {
	return ps.storage
}

// --------------------------------------------------------------------------
// Snapshot Access
// --------------------------------------------------------------------------

// GetState returns the persisted snapshot
func (ps *PersistedState) GetState() (any, bool, error) {
	return ps.storage.Get(ps.opts.StorageKey)
}

// SetState overwrites the persisted snapshot
func (ps *PersistedState) SetState(value any) error {
	if err := ps.storage.Set(ps.opts.StorageKey, value); err != nil {
		return err
	}
	persistWrites.Inc()
	return nil
}

// ClearState deletes the persisted snapshot. Other keys in the store are left alone.
func (ps *PersistedState) ClearState() error {
	Logger.Debugf("clearing persisted state %q", ps.opts.StorageKey)
	return ps.storage.Delete(ps.opts.StorageKey)
}

// CheckStorage verifies that the store is usable by writing, reading and deleting a sentinel key
func (ps *PersistedState) CheckStorage() error {
	if err := ps.storage.Set(storageCheckKey, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInvalid, err)
	}
	if _, _, err := ps.storage.Get(storageCheckKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInvalid, err)
	}
	if err := ps.storage.Delete(storageCheckKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInvalid, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Container Binding
// --------------------------------------------------------------------------

// LoadInitialState rehydrates the container from the snapshot. Without a
// snapshot nothing happens. With Overwrite the snapshot replaces the state,
// otherwise it is deep merged into the current state.
func (ps *PersistedState) LoadInitialState() error {
	snapshot, ok, err := ps.GetState()
	if err != nil {
		return fmt.Errorf("failed to read persisted state: %w", err)
	}
	if !ok || snapshot == nil {
		Logger.Debugf("no persisted state found")
		return nil
	}

	next := snapshot
	if !ps.opts.Overwrite {
		next = Merge(ps.container.State(), snapshot, ps.opts.ArrayMerger)
	}
	if err := ps.container.ReplaceState(next); err != nil {
		return fmt.Errorf("failed to restore persisted state: %w", err)
	}

	Logger.Infof("restored persisted state (overwrite: %t)", ps.opts.Overwrite)
	return nil
}

// SubscribeOnChanges persists the (reduced) state after every mutation.
// A mutation of type ResetMutation deletes the snapshot instead, this takes
// precedence over Filter. Write errors are returned to the committer.
func (ps *PersistedState) SubscribeOnChanges() (unsubscribe func()) {
	return ps.container.Subscribe(func(m state.Mutation, s any) error {
		if ps.opts.ResetMutation != "" && m.Type == ps.opts.ResetMutation {
			return ps.ClearState()
		}
		if ps.opts.Filter != nil && ps.opts.Filter(m) {
			return nil
		}
		return ps.SetState(ps.opts.Reducer(s, ps.opts.Paths))
	})
}

// Close releases the store if it was opened by New
func (ps *PersistedState) Close() error {
	if !ps.owned {
		return nil
	}
	if c, ok := ps.storage.(store.ICloser); ok {
		return c.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// buildMigrations wraps every MigrateFunc into a store migration that reads
// the snapshot, migrates it and writes it back
func (ps *PersistedState) buildMigrations(migrations map[string]MigrateFunc) store.Migrations {
	if len(migrations) == 0 {
		return nil
	}

	key := ps.opts.StorageKey
	out := make(store.Migrations, len(migrations))
	for version, migrate := range migrations {
		migrate := migrate // per-iteration copy (go directive < 1.22)
		out[version] = func(s store.IStore) error {
			old, ok, err := s.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				old = nil
			}

			next, err := migrate(old)
			if err != nil {
				return err
			}
			if next == nil && !ok {
				return nil
			}
			return s.Set(key, next)
		}
	}
	return out
}

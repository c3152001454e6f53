package lstore

import (
	"encoding/json"

	"github.com/ValentinKolb/dState/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

type storeImpl struct {
	data *xsync.MapOf[string, []byte]
}

// NewLocalStore creates a new in-memory store instance.
// Nothing is written to disk, the content is lost when the process exits.
// Values are kept in their encoded form, so callers never share memory with the store.
//
// Thread-safety: all methods are safe for concurrent use.
func NewLocalStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// NewLocalStoreFactory adapts NewLocalStore to the store.Factory signature.
// Migrations from the config are applied to the fresh store.
func NewLocalStoreFactory(config store.Config) (store.IStore, error) {
	s := NewLocalStore()
	if err := store.RunMigrations(s, config.Migrations, config.ProjectVersion); err != nil {
		return nil, err
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (any, bool, error) {
	raw, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	value, err := store.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *storeImpl) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return store.Errorf(store.RetCInvalidValue, "value for key %q is not JSON serializable: %v", key, err)
	}
	s.data.Store(key, raw)
	return nil
}

func (s *storeImpl) Delete(key string) error {
	s.data.Delete(key)
	return nil
}

func (s *storeImpl) Clear() error {
	s.data.Range(func(key string, _ []byte) bool {
		if !store.IsInternalKey(key) {
			s.data.Delete(key)
		}
		return true
	})
	return nil
}

package fstore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ValentinKolb/dState/lib/store"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultName    = "dstate"
	defaultDirName = "dstate"
	fileExtension  = ".json"
	filePerm       = 0o600
	dirPerm        = 0o755
)

// --------------------------------------------------------------------------
// File Store
// --------------------------------------------------------------------------

// storeImpl keeps all keys in a single JSON document on disk.
// Every read re-reads the file, so changes made by other processes or by hand
// are picked up. Every write replaces the file atomically.
type storeImpl struct {
	path   string
	cipher *cipherBox // nil = plain JSON
	mu     sync.Mutex
}

// NewFileStore opens (or creates) the store file described by config and runs
// the configured migrations. Migrations operate on an in-memory view of the
// document: the file is written once after all of them succeeded, or not at all.
func NewFileStore(config store.Config) (store.IStore, error) {
	path, err := resolvePath(config)
	if err != nil {
		return nil, err
	}

	s := &storeImpl{path: path}
	if config.EncryptionKey != "" {
		s.cipher = newCipherBox(config.EncryptionKey)
	}

	if len(config.Migrations) > 0 {
		if err := s.migrate(config.Migrations, config.ProjectVersion); err != nil {
			return nil, err
		}
	}

	Logger.Debugf("opened file store %s (encrypted: %t)", path, s.cipher != nil)
	return s, nil
}

// Path returns the location of the store file.
func (s *storeImpl) Path() string {
	return s.path
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	return (&docStore{doc: doc}).Get(key)
}

func (s *storeImpl) Set(key string, value any) error {
	return s.update(func(d *docStore) error {
		return d.Set(key, value)
	})
}

func (s *storeImpl) Delete(key string) error {
	return s.update(func(d *docStore) error {
		return d.Delete(key)
	})
}

func (s *storeImpl) Clear() error {
	return s.update(func(d *docStore) error {
		return d.Clear()
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// update runs fn on the current document and writes the result if fn changed anything
func (s *storeImpl) update(fn func(d *docStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	d := &docStore{doc: doc}
	if err := fn(d); err != nil {
		return err
	}
	if !d.dirty {
		return nil
	}
	return s.write(d.doc)
}

// migrate runs the migrations on a transaction view of the document
func (s *storeImpl) migrate(migrations store.Migrations, projectVersion string) error {
	return s.update(func(d *docStore) error {
		return store.RunMigrations(d, migrations, projectVersion)
	})
}

// read loads and decodes the store file. A missing file is an empty document.
func (s *storeImpl) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return document{}, nil
	}
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "failed to read %s: %v", s.path, err)
	}

	if isSealed(data) {
		if s.cipher == nil {
			return nil, store.Errorf(store.RetCInternalError, "%s is encrypted but no encryption key was given", s.path)
		}
		if data, err = s.cipher.open(data); err != nil {
			return nil, store.Errorf(store.RetCInternalError, "%s: %v", s.path, err)
		}
	}

	if len(data) == 0 {
		return document{}, nil
	}

	doc := document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, store.Errorf(store.RetCInternalError, "%s is not a valid store file: %v", s.path, err)
	}
	if doc == nil {
		return nil, store.Errorf(store.RetCInternalError, "%s is not a valid store file: content is null", s.path)
	}
	return doc, nil
}

// write encodes (and encrypts) the document and replaces the store file
func (s *storeImpl) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return store.Errorf(store.RetCInvalidValue, "failed to encode store: %v", err)
	}

	if s.cipher != nil {
		if data, err = s.cipher.seal(data); err != nil {
			return store.Errorf(store.RetCInternalError, "failed to encrypt store: %v", err)
		}
	}

	if err := writeFileAtomic(s.path, data, filePerm); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to write %s: %v", s.path, err)
	}
	return nil
}

// resolvePath builds the store file location from the config and makes sure the directory exists
func resolvePath(config store.Config) (string, error) {
	name := config.Name
	if name == "" {
		name = defaultName
	}

	dir := config.Dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", store.Errorf(store.RetCInternalError, "failed to resolve config directory: %v", err)
		}
		dir = filepath.Join(base, defaultDirName)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", store.Errorf(store.RetCInternalError, "failed to create store directory %s: %v", dir, err)
	}
	return filepath.Join(dir, name+fileExtension), nil
}

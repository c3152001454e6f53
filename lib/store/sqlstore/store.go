package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ValentinKolb/dState/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

var Logger = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	driverName    = "sqlite"
	defaultName   = "dstate"
	fileExtension = ".db"

	schemaSQL = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`
)

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// --------------------------------------------------------------------------
// SQLite Store
// --------------------------------------------------------------------------

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type storeImpl struct {
	kv
	db     *sql.DB
	closed atomic.Bool
}

// NewSQLiteStore opens (or creates) <dir>/<name>.db and runs the configured
// migrations inside a single transaction.
// Encryption is not supported by this engine, a non-empty EncryptionKey is rejected.
func NewSQLiteStore(config store.Config) (store.IStore, error) {
	if config.EncryptionKey != "" {
		return nil, store.NewError(store.RetCInvalidOperation, "the sqlite engine does not support encryption")
	}

	path, err := resolvePath(config)
	if err != nil {
		return nil, err
	}
	return Open(path, config.Migrations, config.ProjectVersion)
}

// Open opens the database at dsn. Pass ":memory:" for a throwaway database.
func Open(dsn string, migrations store.Migrations, projectVersion string) (store.IStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, store.Errorf(store.RetCInternalError, "failed to open database: %v", err)
	}

	// sqlite only supports one writer, and ":memory:" databases are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &storeImpl{kv: kv{q: db}, db: db}
	if len(migrations) > 0 {
		if err := s.migrate(migrations, projectVersion); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	Logger.Debugf("opened sqlite store %s", dsn)
	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (any, bool, error) {
	if s.closed.Load() {
		return nil, false, errClosed
	}
	return s.kv.Get(key)
}

func (s *storeImpl) Set(key string, value any) error {
	if s.closed.Load() {
		return errClosed
	}
	return s.kv.Set(key, value)
}

func (s *storeImpl) Delete(key string) error {
	if s.closed.Load() {
		return errClosed
	}
	return s.kv.Delete(key)
}

func (s *storeImpl) Clear() error {
	if s.closed.Load() {
		return errClosed
	}
	return s.kv.Clear()
}

// Close releases the database handle. Further operations fail with RetCInvalidOperation.
func (s *storeImpl) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

var errClosed = store.NewError(store.RetCInvalidOperation, "store is closed")

func (s *storeImpl) migrate(migrations store.Migrations, projectVersion string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return store.Errorf(store.RetCInternalError, "failed to begin migration: %v", err)
	}

	if err := store.RunMigrations(&kv{q: tx}, migrations, projectVersion); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to commit migration: %v", err)
	}
	return nil
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to connect to database: %v", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return store.Errorf(store.RetCInternalError, "failed to apply %q: %v", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to apply schema: %v", err)
	}
	return nil
}

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
		dir = filepath.Join(base, defaultName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", store.Errorf(store.RetCInternalError, "failed to create store directory %s: %v", dir, err)
	}
	return filepath.Join(dir, name+fileExtension), nil
}

// --------------------------------------------------------------------------
// Key Value Operations
// --------------------------------------------------------------------------

// kv runs the store operations against a database or a transaction
type kv struct {
	q querier
}

func (k *kv) Get(key string) (any, bool, error) {
	var raw string
	err := k.q.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, store.Errorf(store.RetCInternalError, "failed to read key %q: %v", key, err)
	}

	value, err := store.Decode([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (k *kv) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return store.Errorf(store.RetCInvalidValue, "value for key %q is not JSON serializable: %v", key, err)
	}

	_, err = k.q.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(raw))
	if err != nil {
		return store.Errorf(store.RetCInternalError, "failed to write key %q: %v", key, err)
	}
	return nil
}

func (k *kv) Delete(key string) error {
	if _, err := k.q.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to delete key %q: %v", key, err)
	}
	return nil
}

func (k *kv) Clear() error {
	prefix := store.InternalKeyPrefix
	if _, err := k.q.Exec(`DELETE FROM kv WHERE substr(key, 1, ?) <> ?`, len(prefix), prefix); err != nil {
		return store.Errorf(store.RetCInternalError, "failed to clear store: %v", err)
	}
	return nil
}

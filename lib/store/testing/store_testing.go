package testing

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dState/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory creates a store from a config. The Dir field is always set to a
// fresh temporary directory by the suite.
type StoreFactory = store.Factory

// Options describe the capabilities of the engine under test
type Options struct {
	// Persistent engines keep their content when reopened with the same config
	Persistent bool
	// Encryption engines accept a non-empty Config.EncryptionKey
	Encryption bool
}

// RunStoreTests runs a comprehensive test suite for a store.IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory, opts Options) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, open(t, factory, store.Config{}))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, open(t, factory, store.Config{}))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, open(t, factory, store.Config{}))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, open(t, factory, store.Config{}))
		})

		t.Run("Normalization", func(t *testing.T) {
			testNormalization(t, open(t, factory, store.Config{}))
		})

		t.Run("InvalidValue", func(t *testing.T) {
			testInvalidValue(t, open(t, factory, store.Config{}))
		})

		t.Run("Migrations", func(t *testing.T) {
			testMigrations(t, factory)
		})

		t.Run("MigrationErrors", func(t *testing.T) {
			testMigrationErrors(t, factory)
		})

		t.Run("Concurrency", func(t *testing.T) {
			testConcurrency(t, open(t, factory, store.Config{}))
		})

		t.Run("Reopen", func(t *testing.T) {
			if !opts.Persistent {
				t.Skip()
			}
			testReopen(t, factory)
		})

		t.Run("MigrationsOnReopen", func(t *testing.T) {
			if !opts.Persistent {
				t.Skip()
			}
			testMigrationsOnReopen(t, factory)
		})

		t.Run("Encryption", func(t *testing.T) {
			if !opts.Encryption {
				t.Skip()
			}
			testEncryption(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a store in a fresh temp dir (unless config.Dir is set) and closes it after the test
func open(t *testing.T, factory StoreFactory, config store.Config) store.IStore {
	t.Helper()
	if config.Dir == "" {
		config.Dir = t.TempDir()
	}
	s, err := factory(config)
	require.NoError(t, err)
	t.Cleanup(func() { closeStore(s) })
	return s
}

func closeStore(s store.IStore) {
	if c, ok := s.(store.ICloser); ok {
		_ = c.Close()
	}
}

func requireCode(t *testing.T, err error, code store.RetCode) {
	t.Helper()
	var storeErr *store.Error
	require.True(t, errors.As(err, &storeErr), "expected a store error, got %v", err)
	assert.Equal(t, code, storeErr.Code)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	value := map[string]any{"count": 1.0, "todos": []any{"a", "b"}}
	require.NoError(t, s.Set("state", value))

	got, ok, err := s.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got)

	_, ok, err = s.Get("nonexistent-key")
	require.NoError(t, err)
	assert.False(t, ok)

	// the returned value must not alias the stored one
	got.(map[string]any)["count"] = 99.0
	again, _, err := s.Get("state")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.(map[string]any)["count"])
}

func testOverwrite(t *testing.T, s store.IStore) {
	require.NoError(t, s.Set("state", map[string]any{"a": 1, "b": 2}))
	require.NoError(t, s.Set("state", map[string]any{"c": 3}))

	got, ok, err := s.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"c": 3.0}, got)
}

func testDelete(t *testing.T, s store.IStore) {
	require.NoError(t, s.Set("state", "value"))
	require.NoError(t, s.Delete("state"))

	_, ok, err := s.Get("state")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.Delete("nonexistent-key"))
}

func testClear(t *testing.T, s store.IStore) {
	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2))
	require.NoError(t, s.Set(store.MigrationVersionKey, "1.0.0"))

	require.NoError(t, s.Clear())

	for _, key := range []string{"a", "b"} {
		_, ok, err := s.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, "key %s survived Clear", key)
	}

	version, ok, err := s.Get(store.MigrationVersionKey)
	require.NoError(t, err)
	require.True(t, ok, "internal keys must survive Clear")
	assert.Equal(t, "1.0.0", version)
}

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
	Skip  *int     `json:"skip,omitempty"`
}

func testNormalization(t *testing.T, s store.IStore) {
	require.NoError(t, s.Set("struct", sample{Name: "x", Count: 3, Tags: []string{"t"}}))

	got, ok, err := s.Get("struct")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": "x", "count": 3.0, "tags": []any{"t"}}, got)

	for _, value := range []any{nil, true, "text", 1.5, []any{}} {
		require.NoError(t, s.Set("scalar", value))
		got, ok, err := s.Get("scalar")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, value, got)
	}
}

func testInvalidValue(t *testing.T, s store.IStore) {
	err := s.Set("state", map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	requireCode(t, err, store.RetCInvalidValue)

	_, ok, err := s.Get("state")
	require.NoError(t, err)
	assert.False(t, ok, "a rejected value must not be stored")
}

func testMigrations(t *testing.T, factory StoreFactory) {
	var order []string
	record := func(version string) store.MigrationFunc {
		return func(s store.IStore) error {
			order = append(order, version)
			return s.Set("schema", version)
		}
	}

	s := open(t, factory, store.Config{
		Migrations: store.Migrations{
			"1.10.0": record("1.10.0"),
			"v1.2.0": record("v1.2.0"),
			"1.0.0":  record("1.0.0"),
			"2.0.0":  record("2.0.0"),
		},
		ProjectVersion: "1.10.0",
	})

	assert.Equal(t, []string{"1.0.0", "v1.2.0", "1.10.0"}, order)

	schema, ok, err := s.Get("schema")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.10.0", schema)

	version, ok, err := s.Get(store.MigrationVersionKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.10.0", version)

	// running the same table again is a no-op
	order = nil
	require.NoError(t, store.RunMigrations(s, store.Migrations{"1.0.0": record("1.0.0")}, ""))
	assert.Empty(t, order)
}

func testMigrationErrors(t *testing.T, factory StoreFactory) {
	_, err := factory(store.Config{
		Dir:        t.TempDir(),
		Migrations: store.Migrations{"not-a-version": func(store.IStore) error { return nil }},
	})
	require.Error(t, err)
	requireCode(t, err, store.RetCInvalidValue)

	_, err = factory(store.Config{
		Dir: t.TempDir(),
		Migrations: store.Migrations{
			"1.0.0":  func(store.IStore) error { return nil },
			"v1.0.0": func(store.IStore) error { return nil },
		},
	})
	require.Error(t, err)
	requireCode(t, err, store.RetCInvalidValue)

	boom := errors.New("boom")
	_, err = factory(store.Config{
		Dir:        t.TempDir(),
		Migrations: store.Migrations{"1.0.0": func(store.IStore) error { return boom }},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func testConcurrency(t *testing.T, s store.IStore) {
	const workers = 4
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := s.Set(fmt.Sprintf("key-%d-%d", w, i), i); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			got, ok, err := s.Get(fmt.Sprintf("key-%d-%d", w, i))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, float64(i), got)
		}
	}
}

func testReopen(t *testing.T, factory StoreFactory) {
	config := store.Config{Dir: t.TempDir(), Name: "reopen"}

	first, err := factory(config)
	require.NoError(t, err)
	require.NoError(t, first.Set("state", map[string]any{"count": 7}))
	closeStore(first)

	second := open(t, factory, config)
	got, ok, err := second.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"count": 7.0}, got)
}

func testMigrationsOnReopen(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()
	runs := 0
	migrations := store.Migrations{
		"1.0.0": func(s store.IStore) error {
			runs++
			return s.Set("state", map[string]any{"migrated": true})
		},
	}

	first, err := factory(store.Config{Dir: dir, Migrations: migrations})
	require.NoError(t, err)
	closeStore(first)

	second := open(t, factory, store.Config{Dir: dir, Migrations: migrations})
	assert.Equal(t, 1, runs, "an applied migration must not run again")

	got, ok, err := second.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"migrated": true}, got)

	// a failing migration leaves nothing behind
	failing := store.Migrations{
		"1.1.0": func(s store.IStore) error {
			if err := s.Set("state", "half written"); err != nil {
				return err
			}
			return errors.New("boom")
		},
	}
	_, err = factory(store.Config{Dir: dir, Migrations: failing})
	require.Error(t, err)

	got, _, err = second.Get("state")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"migrated": true}, got)
}

func testEncryption(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()

	first, err := factory(store.Config{Dir: dir, EncryptionKey: "secret"})
	require.NoError(t, err)
	require.NoError(t, first.Set("state", "hidden"))
	closeStore(first)

	same := open(t, factory, store.Config{Dir: dir, EncryptionKey: "secret"})
	got, ok, err := same.Get("state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hidden", got)

	// a wrong key either fails to open or fails on every operation
	wrong, err := factory(store.Config{Dir: dir, EncryptionKey: "wrong"})
	if err == nil {
		defer closeStore(wrong)
		_, _, err = wrong.Get("state")
		require.Error(t, err)
		requireCode(t, err, store.RetCInternalError)
		require.Error(t, wrong.Set("state", 1))
	}
}

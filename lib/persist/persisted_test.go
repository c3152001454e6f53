package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/ValentinKolb/dState/lib/store"
	"github.com/ValentinKolb/dState/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func todoConfig() state.Config {
	return state.Config{
		State: map[string]any{"count": 0, "todos": []any{"initial"}, "draft": ""},
		Mutations: map[string]state.MutationFunc{
			"increment": func(s any, _ any) (any, error) {
				m := s.(map[string]any)
				m["count"] = m["count"].(float64) + 1
				return m, nil
			},
			"addTodo": func(s any, payload any) (any, error) {
				m := s.(map[string]any)
				m["todos"] = append(m["todos"].([]any), payload)
				return m, nil
			},
			"setDraft": func(s any, payload any) (any, error) {
				m := s.(map[string]any)
				m["draft"] = payload
				return m, nil
			},
			"reset": func(s any, _ any) (any, error) {
				return s, nil
			},
		},
	}
}

func newContainer(t *testing.T) state.IContainer {
	c, err := state.New(todoConfig())
	require.NoError(t, err)
	return c
}

func newPersisted(t *testing.T, opts Options, c state.IContainer) *PersistedState {
	if opts.Storage == nil {
		opts.Storage = lstore.NewLocalStore()
	}
	ps, err := New(opts, c)
	require.NoError(t, err)
	return ps
}

// failingStore fails every operation
type failingStore struct{ err error }

func (f failingStore) Get(string) (any, bool, error) { return nil, false, f.err }
func (f failingStore) Set(string, any) error         { return f.err }
func (f failingStore) Delete(string) error           { return f.err }
func (f failingStore) Clear() error                  { return f.err }

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestDefaults(t *testing.T) {
	ps := newPersisted(t, Options{}, newContainer(t))
	opts := ps.Options()

	assert.Equal(t, DefaultStorageKey, opts.StorageKey)
	assert.Equal(t, DefaultFileName, opts.FileName)
	assert.NotNil(t, opts.Reducer)
	assert.NotNil(t, opts.ArrayMerger)
	assert.False(t, opts.Overwrite)
	assert.False(t, opts.DisableStorageCheck)
	assert.Contains(t, opts.String(), "Storage Key           : state")
}

func TestSetGetStateRoundTrip(t *testing.T) {
	ps := newPersisted(t, Options{}, newContainer(t))

	_, ok, err := ps.GetState()
	require.NoError(t, err)
	assert.False(t, ok)

	value := map[string]any{"count": 3.0, "nested": map[string]any{"list": []any{1.0, "x"}}}
	require.NoError(t, ps.SetState(value))

	got, ok, err := ps.GetState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value, got)
}

func TestSetGetStateProperty(t *testing.T) {
	ps := newPersisted(t, Options{}, newContainer(t))
	rapid.Check(t, func(rt *rapid.T) {
		value := map[string]any{
			"n":    float64(rapid.IntRange(-1000, 1000).Draw(rt, "n")),
			"s":    rapid.StringMatching(`[a-zA-Z0-9 ]*`).Draw(rt, "s"),
			"b":    rapid.Bool().Draw(rt, "b"),
			"list": toAny(rapid.SliceOf(rapid.Float64Range(-10, 10)).Draw(rt, "list")),
		}
		if err := ps.SetState(value); err != nil {
			rt.Fatalf("set: %v", err)
		}
		got, ok, err := ps.GetState()
		if err != nil || !ok {
			rt.Fatalf("get: %v (loaded %t)", err, ok)
		}
		assert.Equal(rt, value, got)
	})
}

func TestClearStateOnlyRemovesSnapshot(t *testing.T) {
	s := lstore.NewLocalStore()
	require.NoError(t, s.Set("other", "keep me"))
	ps := newPersisted(t, Options{Storage: s}, newContainer(t))

	require.NoError(t, ps.SetState(map[string]any{"count": 1}))
	require.NoError(t, ps.ClearState())

	_, ok, err := ps.GetState()
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := s.Get("other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "keep me", other)
}

func TestCheckStorage(t *testing.T) {
	s := lstore.NewLocalStore()
	ps := newPersisted(t, Options{Storage: s}, newContainer(t))
	require.NoError(t, ps.CheckStorage())

	_, ok, err := s.Get(storageCheckKey)
	require.NoError(t, err)
	assert.False(t, ok, "the sentinel key must be removed")

	cause := store.NewError(store.RetCInternalError, "wrong encryption key")
	broken := newPersisted(t, Options{Storage: failingStore{err: cause}}, newContainer(t))
	err = broken.CheckStorage()
	assert.ErrorIs(t, err, ErrStorageInvalid)
	assert.Contains(t, err.Error(), "wrong encryption key")
}

func TestCheckStorageNullFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.json"), []byte("null"), 0o600))

	ps, err := New(Options{StorageFileLocation: dir, FileName: "app"}, newContainer(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ps.Close() })

	assert.ErrorIs(t, ps.CheckStorage(), ErrStorageInvalid)
}

func TestLoadInitialStateWithoutSnapshot(t *testing.T) {
	c := newContainer(t)
	before := c.State()
	ps := newPersisted(t, Options{}, c)

	require.NoError(t, ps.LoadInitialState())
	assert.Equal(t, before, c.State())
}

func TestLoadInitialStateOverwrite(t *testing.T) {
	s := lstore.NewLocalStore()
	snapshot := map[string]any{"todos": []any{"persisted"}}
	require.NoError(t, s.Set(DefaultStorageKey, snapshot))

	c := newContainer(t)
	ps := newPersisted(t, Options{Storage: s, Overwrite: true}, c)
	require.NoError(t, ps.LoadInitialState())

	assert.Equal(t, snapshot, c.State())
}

func TestLoadInitialStateMerge(t *testing.T) {
	s := lstore.NewLocalStore()
	require.NoError(t, s.Set(DefaultStorageKey, map[string]any{"count": 5, "todos": []any{"initial", "persisted"}}))

	c := newContainer(t)
	ps := newPersisted(t, Options{Storage: s}, c)
	require.NoError(t, ps.LoadInitialState())

	assert.Equal(t, map[string]any{
		"count": 5.0,
		"todos": []any{"initial", "persisted"},
		"draft": "",
	}, c.State())
}

func TestLoadInitialStateReadError(t *testing.T) {
	ps := newPersisted(t, Options{Storage: failingStore{err: errors.New("io")}}, newContainer(t))
	assert.Error(t, ps.LoadInitialState())
}

func TestSubscribeOnChanges(t *testing.T) {
	c := newContainer(t)
	ps := newPersisted(t, Options{}, c)
	ps.SubscribeOnChanges()

	require.NoError(t, c.Commit("increment", nil, nil))
	got, ok, err := ps.GetState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.State(), got)

	// the same state written twice yields the same snapshot
	require.NoError(t, c.Commit("reset", nil, nil))
	again, _, err := ps.GetState()
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSubscribeOnChangesWithPaths(t *testing.T) {
	c := newContainer(t)
	ps := newPersisted(t, Options{Paths: []string{"todos"}}, c)
	ps.SubscribeOnChanges()

	require.NoError(t, c.Commit("addTodo", "write tests", nil))
	got, _, err := ps.GetState()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"todos": []any{"initial", "write tests"}}, got)
}

func TestFilterPreventsWrites(t *testing.T) {
	c := newContainer(t)
	ps := newPersisted(t, Options{
		Filter: func(m state.Mutation) bool { return m.Type == "setDraft" },
	}, c)
	ps.SubscribeOnChanges()

	require.NoError(t, c.Commit("setDraft", "typing", nil))
	_, ok, err := ps.GetState()
	require.NoError(t, err)
	assert.False(t, ok, "a filtered mutation must not be persisted")

	require.NoError(t, c.Commit("increment", nil, nil))
	got, ok, err := ps.GetState()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "typing", got.(map[string]any)["draft"])
}

func TestResetMutationBeatsFilter(t *testing.T) {
	c := newContainer(t)
	ps := newPersisted(t, Options{
		ResetMutation: "reset",
		Filter:        func(state.Mutation) bool { return true },
	}, c)
	ps.SubscribeOnChanges()

	require.NoError(t, ps.SetState(map[string]any{"count": 99}))
	require.NoError(t, c.Commit("reset", nil, nil))

	_, ok, err := ps.GetState()
	require.NoError(t, err)
	assert.False(t, ok, "the reset mutation must clear the snapshot")
}

func TestWriteErrorsReachTheCommitter(t *testing.T) {
	c := newContainer(t)
	boom := errors.New("disk full")
	ps := newPersisted(t, Options{Storage: failingStore{err: boom}}, c)
	ps.SubscribeOnChanges()

	assert.ErrorIs(t, c.Commit("increment", nil, nil), boom)
}

func TestMigrations(t *testing.T) {
	s := lstore.NewLocalStore()
	require.NoError(t, s.Set(DefaultStorageKey, map[string]any{"todos": []any{"a"}}))

	_, err := New(Options{
		Storage: s,
		Migrations: map[string]MigrateFunc{
			"1.0.0": func(old any) (any, error) {
				m := old.(map[string]any)
				m["version"] = 1.0
				return m, nil
			},
			"2.0.0": func(old any) (any, error) {
				m := old.(map[string]any)
				m["items"] = m["todos"]
				delete(m, "todos")
				return m, nil
			},
		},
		ProjectVersion: "2.0.0",
	}, newContainer(t))
	require.NoError(t, err)

	got, _, err := s.Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"version": 1.0, "items": []any{"a"}}, got)
}

func TestMigrationWithoutSnapshot(t *testing.T) {
	s := lstore.NewLocalStore()
	calls := 0
	_, err := New(Options{
		Storage: s,
		Migrations: map[string]MigrateFunc{
			"1.0.0": func(old any) (any, error) {
				calls++
				assert.Nil(t, old)
				return nil, nil
			},
		},
	}, newContainer(t))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, ok, err := s.Get(DefaultStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDevSkipsMigrations(t *testing.T) {
	_, err := New(Options{
		Storage: lstore.NewLocalStore(),
		Dev:     true,
		Migrations: map[string]MigrateFunc{
			"1.0.0": func(any) (any, error) { return nil, errors.New("must not run") },
		},
	}, newContainer(t))
	assert.NoError(t, err)
}

func TestFileStoreMigrations(t *testing.T) {
	dir := t.TempDir()
	first, err := New(Options{StorageFileLocation: dir, FileName: "app"}, newContainer(t))
	require.NoError(t, err)
	require.NoError(t, first.SetState(map[string]any{"count": 1}))
	require.NoError(t, first.Close())

	second, err := New(Options{
		StorageFileLocation: dir,
		FileName:            "app",
		Migrations: map[string]MigrateFunc{
			"v1.1.0": func(old any) (any, error) {
				m := old.(map[string]any)
				m["count"] = m["count"].(float64) * 10
				return m, nil
			},
		},
	}, newContainer(t))
	require.NoError(t, err)

	got, _, err := second.GetState()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 10.0}, got)
}

// Package persist keeps the state of a state.IContainer across restarts.
//
// PersistedState binds a container to a store.IStore: LoadInitialState
// rehydrates the container from the persisted snapshot (merged into the
// initial state, or replacing it with Overwrite) and SubscribeOnChanges writes
// the reduced state after every mutation. Create assembles both into a
// container plugin and optionally activates a Bridge to a controller process.
//
// Example:
//
//	container, err := state.New(state.Config{
//		State:     initial,
//		Mutations: mutations,
//		Plugins: []state.Plugin{
//			persist.Create(persist.Options{Paths: []string{"todos"}}, nil),
//		},
//	})
package persist

package state

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IContainer is a central state container: a single JSON shaped state tree
// that only changes through named mutations.
type IContainer interface {
	// State returns a deep copy of the current state
	State() any
	// ReplaceState replaces the whole state without running a mutation. Subscribers are not notified.
	ReplaceState(state any) error
	// Commit runs the mutation registered under mutationType and notifies all subscribers.
	// The first subscriber error is returned to the caller.
	Commit(mutationType string, payload any, opts *Options) error
	// Dispatch runs the action registered under actionType. Actions may commit.
	Dispatch(actionType string, payload any, opts *Options) error
	// Subscribe registers fn to be called after every commit. The returned function removes it again.
	Subscribe(fn Subscriber) (unsubscribe func())
}

// Mutation describes a committed change
type Mutation struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Options modify a commit or dispatch. A nil *Options means no options.
type Options struct {
	// Root addresses the root container from a namespaced module (accepted for wire compatibility, the container has no modules)
	Root bool `json:"root,omitempty"`
	// Silent commits do not notify subscribers
	Silent bool `json:"silent,omitempty"`
}

// MutationFunc computes the next state from the current one. The state passed
// in is a private copy and may be modified and returned.
type MutationFunc func(state any, payload any) (any, error)

// ActionFunc implements an action. It usually commits one or more mutations.
type ActionFunc func(c IContainer, payload any) error

// Subscriber is notified after a mutation was applied. state is a copy of the new state.
// Subscribers run while the commit lock is held and must not commit themselves.
type Subscriber func(m Mutation, state any) error

// Plugin is invoked once when the container is created
type Plugin func(c IContainer) error

// Config is used to create a container
type Config struct {
	State     any
	Mutations map[string]MutationFunc
	Actions   map[string]ActionFunc
	Plugins   []Plugin
}

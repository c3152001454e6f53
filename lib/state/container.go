package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("state")

var (
	ErrUnknownMutation = errors.New("unknown mutation type")
	ErrUnknownAction   = errors.New("unknown action type")
)

type subscription struct {
	id uint64
	fn Subscriber
}

type containerImpl struct {
	commitMu    sync.Mutex // held across mutation + notification
	mu          sync.RWMutex
	state       any
	mutations   map[string]MutationFunc
	actions     map[string]ActionFunc
	subscribers []subscription
	nextID      uint64
}

// New creates a container from the config and runs its plugins in order.
// The initial state is normalized to its JSON shape.
func New(config Config) (IContainer, error) {
	initial, err := normalize(config.State)
	if err != nil {
		return nil, fmt.Errorf("invalid initial state: %w", err)
	}

	c := &containerImpl{
		state:     initial,
		mutations: make(map[string]MutationFunc, len(config.Mutations)),
		actions:   make(map[string]ActionFunc, len(config.Actions)),
	}
	for name, fn := range config.Mutations {
		c.mutations[name] = fn
	}
	for name, fn := range config.Actions {
		c.actions[name] = fn
	}

	for i, plugin := range config.Plugins {
		if err := plugin(c); err != nil {
			return nil, fmt.Errorf("plugin %d failed: %w", i, err)
		}
	}
	return c, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see state/interface.go)
// --------------------------------------------------------------------------

func (c *containerImpl) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Clone(c.state)
}

func (c *containerImpl) ReplaceState(state any) error {
	next, err := normalize(state)
	if err != nil {
		return fmt.Errorf("invalid state: %w", err)
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	c.state = next
	c.mu.Unlock()
	return nil
}

func (c *containerImpl) Commit(mutationType string, payload any, opts *Options) error {
	fn, ok := c.mutations[mutationType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMutation, mutationType)
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	result, err := fn(c.State(), payload)
	if err != nil {
		return fmt.Errorf("mutation %s failed: %w", mutationType, err)
	}
	next, err := normalize(result)
	if err != nil {
		return fmt.Errorf("mutation %s produced an invalid state: %w", mutationType, err)
	}

	c.mu.Lock()
	c.state = next
	subscribers := append([]subscription(nil), c.subscribers...)
	c.mu.Unlock()

	if opts != nil && opts.Silent {
		return nil
	}

	m := Mutation{Type: mutationType, Payload: payload}
	for _, sub := range subscribers {
		if err := sub.fn(m, Clone(next)); err != nil {
			return err
		}
	}
	return nil
}

func (c *containerImpl) Dispatch(actionType string, payload any, _ *Options) error {
	fn, ok := c.actions[actionType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, actionType)
	}
	if err := fn(c, payload); err != nil {
		return fmt.Errorf("action %s failed: %w", actionType, err)
	}
	return nil
}

func (c *containerImpl) Subscribe(fn Subscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subscribers = append(c.subscribers, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.subscribers {
				if sub.id == id {
					c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// normalize converts a value to its JSON shape (map[string]any, []any, float64, string, bool, nil)
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone deep copies a JSON shaped value. Other values are returned as is.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

package peer

import (
	"fmt"

	"github.com/ValentinKolb/dState/lib/state"
)

// demoState is the initial state of the demo container
func demoState() map[string]any {
	return map[string]any{
		"count": 0,
		"todos": []any{},
	}
}

// demoConfig creates the container of the demo peer:
//
//	mutations: increment, decrement, set-count, add-todo, toggle-todo, remove-todo, reset
//	actions:   add-todos
func demoConfig(plugins ...state.Plugin) state.Config {
	return state.Config{
		State: demoState(),
		Mutations: map[string]state.MutationFunc{
			"increment": func(s any, payload any) (any, error) {
				return addCount(s, payload, 1)
			},
			"decrement": func(s any, payload any) (any, error) {
				return addCount(s, payload, -1)
			},
			"set-count": func(s any, payload any) (any, error) {
				n, ok := payload.(float64)
				if !ok {
					return nil, fmt.Errorf("payload must be a number")
				}
				m := s.(map[string]any)
				m["count"] = n
				return m, nil
			},
			"add-todo": func(s any, payload any) (any, error) {
				todo, err := newTodo(payload)
				if err != nil {
					return nil, err
				}
				m := s.(map[string]any)
				m["todos"] = append(todos(m), todo)
				return m, nil
			},
			"toggle-todo": func(s any, payload any) (any, error) {
				m := s.(map[string]any)
				list := todos(m)
				i, err := index(payload, len(list))
				if err != nil {
					return nil, err
				}
				todo := list[i].(map[string]any)
				done, _ := todo["done"].(bool)
				todo["done"] = !done
				return m, nil
			},
			"remove-todo": func(s any, payload any) (any, error) {
				m := s.(map[string]any)
				list := todos(m)
				i, err := index(payload, len(list))
				if err != nil {
					return nil, err
				}
				m["todos"] = append(list[:i:i], list[i+1:]...)
				return m, nil
			},
			"reset": func(any, any) (any, error) {
				return demoState(), nil
			},
		},
		Actions: map[string]state.ActionFunc{
			"add-todos": func(c state.IContainer, payload any) error {
				list, ok := payload.([]any)
				if !ok {
					return fmt.Errorf("payload must be a list of todos")
				}
				for _, todo := range list {
					if err := c.Commit("add-todo", todo, nil); err != nil {
						return err
					}
				}
				return nil
			},
		},
		Plugins: plugins,
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func addCount(s any, payload any, sign float64) (any, error) {
	step := 1.0
	if payload != nil {
		n, ok := payload.(float64)
		if !ok {
			return nil, fmt.Errorf("payload must be a number")
		}
		step = n
	}
	m := s.(map[string]any)
	count, _ := m["count"].(float64)
	m["count"] = count + sign*step
	return m, nil
}

func todos(m map[string]any) []any {
	list, _ := m["todos"].([]any)
	return list
}

// newTodo accepts a title or an object with a title
func newTodo(payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case string:
		return map[string]any{"title": p, "done": false}, nil
	case map[string]any:
		title, ok := p["title"].(string)
		if !ok || title == "" {
			return nil, fmt.Errorf("todo needs a title")
		}
		done, _ := p["done"].(bool)
		return map[string]any{"title": title, "done": done}, nil
	default:
		return nil, fmt.Errorf("payload must be a title or a todo object")
	}
}

func index(payload any, n int) (int, error) {
	f, ok := payload.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("payload must be an index")
	}
	i := int(f)
	if i < 0 || i >= n {
		return 0, fmt.Errorf("index %d out of range (%d todos)", i, n)
	}
	return i, nil
}

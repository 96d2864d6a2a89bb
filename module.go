package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-store/pkg/reactive"
)

// Module is a user-authored module definition. State may be a
// map[string]any, a *reactive.Object, a func() any factory returning either,
// or any value that JSON-encodes to an object. A factory yields fresh state
// every time the module is registered.
type Module struct {
	State      any
	Namespaced bool
	Mutations  map[string]Mutation
	Actions    map[string]Action
	Getters    map[string]Getter
	Modules    map[string]*Module
}

// Mutation synchronously changes the module's local state.
type Mutation func(state *reactive.Object, payload any)

// ActionHandler runs an action. A returned *Future is handed back to the
// caller as is; any other value resolves the dispatch future, and a non-nil
// error rejects it.
type ActionHandler func(ctx ActionContext, payload any) (any, error)

// Action pairs a handler with its registration flags. Root actions are
// registered under their bare key even inside a namespaced module.
type Action struct {
	Handler ActionHandler
	Root    bool
}

// ActionFunc wraps handler as a namespaced action.
func ActionFunc(handler ActionHandler) Action {
	return Action{Handler: handler}
}

// RootAction wraps handler as an action registered in the global namespace.
func RootAction(handler ActionHandler) Action {
	return Action{Handler: handler, Root: true}
}

// Getter derives a value from the module's local state and getters and from
// the whole store.
type Getter func(state *reactive.Object, getters Getters, rootState *reactive.Object, rootGetters Getters) any

// validateModule rejects nil handlers and nil child modules. It runs only in
// development builds.
func validateModule(raw *Module, path []string) error {
	if !assertionsEnabled || raw == nil {
		return nil
	}
	where := strings.Join(path, "/")
	if where == "" {
		where = "<root>"
	}
	for _, key := range sortedKeys(raw.Mutations) {
		if raw.Mutations[key] == nil {
			return fmt.Errorf("%w: mutation %q in module %s is nil", ErrInvalidModule, key, where)
		}
	}
	for _, key := range sortedKeys(raw.Actions) {
		if raw.Actions[key].Handler == nil {
			return fmt.Errorf("%w: action %q in module %s has no handler", ErrInvalidModule, key, where)
		}
	}
	for _, key := range sortedKeys(raw.Getters) {
		if raw.Getters[key] == nil {
			return fmt.Errorf("%w: getter %q in module %s is nil", ErrInvalidModule, key, where)
		}
	}
	for _, key := range sortedKeys(raw.Modules) {
		child := raw.Modules[key]
		if child == nil {
			return fmt.Errorf("%w: child module %q in module %s is nil", ErrInvalidModule, key, where)
		}
		if err := validateModule(child, appendPath(path, key)); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func appendPath(path []string, key string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, key)
}

func copyMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for key, value := range m {
		out[key] = value
	}
	return out
}

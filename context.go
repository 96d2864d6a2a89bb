package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-store/pkg/reactive"
)

// Getters is a read-only view over computed getters.
type Getters interface {
	// Get returns the value of the getter registered under key.
	Get(key string) (any, bool)
	// Value returns the value of key or nil.
	Value(key string) any
	// Keys returns the visible getter keys in sorted order.
	Keys() []string
}

type storeGetters struct {
	store *Store
}

func (g storeGetters) Get(key string) (any, bool) {
	return g.store.vm.Computed(key)
}

func (g storeGetters) Value(key string) any {
	value, _ := g.Get(key)
	return value
}

func (g storeGetters) Keys() []string {
	return g.store.vm.Keys()
}

// namespacedGetters exposes the getters under namespace with the prefix
// stripped. Reads pass through to the store's computed values.
type namespacedGetters struct {
	store     *Store
	namespace string
}

func (g namespacedGetters) Get(key string) (any, bool) {
	return g.store.vm.Computed(g.namespace + key)
}

func (g namespacedGetters) Value(key string) any {
	value, _ := g.Get(key)
	return value
}

func (g namespacedGetters) Keys() []string {
	var keys []string
	for _, typ := range g.store.vm.Keys() {
		if local, ok := strings.CutPrefix(typ, g.namespace); ok {
			keys = append(keys, local)
		}
	}
	sort.Strings(keys)
	return keys
}

// LocalContext is the namespace-aware view a module's handlers work
// through. Unqualified types are resolved against the module's namespace
// unless the Root option is given.
type LocalContext struct {
	store     *Store
	namespace string
	path      []string
}

func newLocalContext(s *Store, namespace string, path []string) *LocalContext {
	return &LocalContext{store: s, namespace: namespace, path: append([]string(nil), path...)}
}

// Namespace returns the module's namespace prefix, "" when unnamespaced.
func (c *LocalContext) Namespace() string { return c.namespace }

// Path returns a copy of the module path.
func (c *LocalContext) Path() []string { return append([]string(nil), c.path...) }

// State walks the module path from the current root state on every call.
func (c *LocalContext) State() *reactive.Object {
	state, _ := c.store.State().Lookup(c.path...)
	return state
}

// Getters returns the store getters for unnamespaced modules, and the
// module's own getters with the namespace stripped otherwise.
func (c *LocalContext) Getters() Getters {
	if c.namespace == "" {
		return c.store.Getters()
	}
	return namespacedGetters{store: c.store, namespace: c.namespace}
}

// Commit commits typ relative to the module's namespace.
func (c *LocalContext) Commit(typ string, payload any, opts ...CallOption) error {
	resolved, err := c.resolve(typ, opts, false)
	if err != nil {
		return err
	}
	return c.store.commit(resolved, payload)
}

// CommitMessage is the object-style form of Commit.
func (c *LocalContext) CommitMessage(msg Typed, opts ...CallOption) error {
	resolved, err := c.resolve(messageType(msg), opts, false)
	if err != nil {
		return err
	}
	return c.store.commit(resolved, msg)
}

// Dispatch dispatches typ relative to the module's namespace. It returns nil
// when the action is unknown.
func (c *LocalContext) Dispatch(typ string, payload any, opts ...CallOption) *Future {
	resolved, err := c.resolve(typ, opts, true)
	if err != nil {
		return c.dispatchError(err)
	}
	return c.store.dispatch(resolved, payload)
}

// DispatchMessage is the object-style form of Dispatch.
func (c *LocalContext) DispatchMessage(msg Typed, opts ...CallOption) *Future {
	resolved, err := c.resolve(messageType(msg), opts, true)
	if err != nil {
		return c.dispatchError(err)
	}
	return c.store.dispatch(resolved, msg)
}

func (c *LocalContext) dispatchError(err error) *Future {
	var assertErr *AssertionError
	if errors.As(err, &assertErr) {
		return Rejected(err)
	}
	return nil
}

func (c *LocalContext) resolve(typ string, opts []CallOption, action bool) (string, error) {
	if err := checkType(typ); err != nil {
		return "", err
	}
	cfg := applyCallOptions(opts)
	if c.namespace == "" || cfg.root {
		return typ, nil
	}

	qualified := c.namespace + typ
	if action {
		if _, ok := c.store.registry.actions[qualified]; !ok {
			c.store.diagnose(Diagnostic{
				Level:     LevelError,
				Code:      CodeUnknownLocalAction,
				Type:      qualified,
				Namespace: c.namespace,
				Path:      c.path,
				Message:   fmt.Sprintf("unknown local action type: %s, global type: %s", typ, qualified),
			})
			return "", fmt.Errorf("%w: %s", ErrUnknownAction, qualified)
		}
		return qualified, nil
	}
	if _, ok := c.store.registry.mutations[qualified]; !ok {
		c.store.diagnose(Diagnostic{
			Level:     LevelError,
			Code:      CodeUnknownLocalMutation,
			Type:      qualified,
			Namespace: c.namespace,
			Path:      c.path,
			Message:   fmt.Sprintf("unknown local mutation type: %s, global type: %s", typ, qualified),
		})
		return "", fmt.Errorf("%w: %s", ErrUnknownMutation, qualified)
	}
	return qualified, nil
}

func (c *LocalContext) actionContext() ActionContext {
	return ActionContext{
		State:       c.State(),
		Getters:     c.Getters(),
		RootState:   c.store.State(),
		RootGetters: c.store.Getters(),
		local:       c,
	}
}

// ActionContext is handed to action handlers. State and Getters are scoped
// to the handler's module; RootState and RootGetters cover the whole store.
type ActionContext struct {
	State       *reactive.Object
	Getters     Getters
	RootState   *reactive.Object
	RootGetters Getters

	local *LocalContext
}

// Commit commits typ relative to the handler's module.
func (c ActionContext) Commit(typ string, payload any, opts ...CallOption) error {
	return c.local.Commit(typ, payload, opts...)
}

// CommitMessage is the object-style form of Commit.
func (c ActionContext) CommitMessage(msg Typed, opts ...CallOption) error {
	return c.local.CommitMessage(msg, opts...)
}

// Dispatch dispatches typ relative to the handler's module.
func (c ActionContext) Dispatch(typ string, payload any, opts ...CallOption) *Future {
	return c.local.Dispatch(typ, payload, opts...)
}

// DispatchMessage is the object-style form of Dispatch.
func (c ActionContext) DispatchMessage(msg Typed, opts ...CallOption) *Future {
	return c.local.DispatchMessage(msg, opts...)
}

// Local returns the module's local context.
func (c ActionContext) Local() *LocalContext {
	return c.local
}

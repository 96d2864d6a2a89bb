package store

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-store/pkg/reactive"
)

// ModuleNode is the runtime wrapper around a Module definition. Handler maps
// are copied from the definition so hot updates never write into it.
type ModuleNode struct {
	runtime    bool
	namespaced bool
	state      *reactive.Object
	mutations  map[string]Mutation
	actions    map[string]Action
	getters    map[string]Getter
	children   map[string]*ModuleNode
	order      []string
}

func newModuleNode(raw *Module, runtime bool) (*ModuleNode, error) {
	if raw == nil {
		raw = &Module{}
	}
	state, err := reactive.FromValue(raw.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModule, err)
	}
	return &ModuleNode{
		runtime:    runtime,
		namespaced: raw.Namespaced,
		state:      state,
		mutations:  copyMap(raw.Mutations),
		actions:    copyMap(raw.Actions),
		getters:    copyMap(raw.Getters),
		children:   map[string]*ModuleNode{},
	}, nil
}

// Namespaced reports whether the module prefixes its handler keys.
func (n *ModuleNode) Namespaced() bool { return n != nil && n.namespaced }

// Runtime reports whether the module was registered after construction.
func (n *ModuleNode) Runtime() bool { return n != nil && n.runtime }

// State returns the seed state the module was created with. It is nil once
// the seed has been grafted onto the store; the live slice is read through
// the store instead.
func (n *ModuleNode) State() *reactive.Object {
	if n == nil {
		return nil
	}
	return n.state
}

// Child returns the child registered under key.
func (n *ModuleNode) Child(key string) (*ModuleNode, bool) {
	if n == nil {
		return nil, false
	}
	child, ok := n.children[key]
	return child, ok
}

// ChildKeys returns child keys: statically declared children sorted, then
// runtime children in registration order.
func (n *ModuleNode) ChildKeys() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.order...)
}

func (n *ModuleNode) addChild(key string, child *ModuleNode) {
	n.children[key] = child
	n.order = append(n.order, key)
}

func (n *ModuleNode) removeChild(key string) {
	delete(n.children, key)
	for i, candidate := range n.order {
		if candidate == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			return
		}
	}
}

func (n *ModuleNode) forEachMutation(fn func(key string, m Mutation)) {
	for _, key := range sortedKeys(n.mutations) {
		fn(key, n.mutations[key])
	}
}

func (n *ModuleNode) forEachAction(fn func(key string, a Action)) {
	for _, key := range sortedKeys(n.actions) {
		fn(key, n.actions[key])
	}
}

func (n *ModuleNode) forEachGetter(fn func(key string, g Getter)) {
	for _, key := range sortedKeys(n.getters) {
		fn(key, n.getters[key])
	}
}

func (n *ModuleNode) forEachChild(fn func(key string, child *ModuleNode)) {
	for _, key := range n.ChildKeys() {
		fn(key, n.children[key])
	}
}

// update replaces the handler maps the definition provides and mirrors its
// namespaced flag. Nil maps keep the current handlers.
func (n *ModuleNode) update(raw *Module) {
	n.namespaced = raw.Namespaced
	if raw.Mutations != nil {
		n.mutations = copyMap(raw.Mutations)
	}
	if raw.Actions != nil {
		n.actions = copyMap(raw.Actions)
	}
	if raw.Getters != nil {
		n.getters = copyMap(raw.Getters)
	}
}

// ModuleTree owns the module nodes of a store.
type ModuleTree struct {
	root *ModuleNode
}

// NewModuleTree builds the static tree for raw. Every node is marked static.
func NewModuleTree(raw *Module) (*ModuleTree, error) {
	root, err := buildNode(raw, false)
	if err != nil {
		return nil, err
	}
	return &ModuleTree{root: root}, nil
}

func buildNode(raw *Module, runtime bool) (*ModuleNode, error) {
	node, err := newModuleNode(raw, runtime)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return node, nil
	}
	for _, key := range sortedKeys(raw.Modules) {
		child, err := buildNode(raw.Modules[key], runtime)
		if err != nil {
			return nil, fmt.Errorf("module %q: %w", key, err)
		}
		node.addChild(key, child)
	}
	return node, nil
}

// Root returns the root node.
func (t *ModuleTree) Root() *ModuleNode {
	return t.root
}

// Get walks path from the root.
func (t *ModuleTree) Get(path []string) (*ModuleNode, error) {
	node := t.root
	for i, key := range path {
		child, ok := node.Child(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, strings.Join(path[:i+1], "/"))
		}
		node = child
	}
	return node, nil
}

// Namespace joins the keys of every namespaced module along path, each
// followed by a slash. It returns "" when none is namespaced.
func (t *ModuleTree) Namespace(path []string) string {
	var b strings.Builder
	node := t.root
	for _, key := range path {
		child, ok := node.Child(key)
		if !ok {
			break
		}
		if child.namespaced {
			b.WriteString(key)
			b.WriteByte('/')
		}
		node = child
	}
	return b.String()
}

// Register builds raw and attaches it under path. The parent must exist and
// the key must be free. Nested children inherit the runtime flag.
func (t *ModuleTree) Register(path []string, raw *Module, runtime bool) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: path must not be empty", ErrInvalidPath)
	}
	parent, err := t.Get(path[:len(path)-1])
	if err != nil {
		return err
	}
	key := path[len(path)-1]
	if _, exists := parent.Child(key); exists {
		return fmt.Errorf("%w: %s", ErrModuleExists, strings.Join(path, "/"))
	}
	node, err := buildNode(raw, runtime)
	if err != nil {
		return err
	}
	parent.addChild(key, node)
	return nil
}

// Unregister detaches the runtime module at path.
func (t *ModuleTree) Unregister(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: path must not be empty", ErrInvalidPath)
	}
	parent, err := t.Get(path[:len(path)-1])
	if err != nil {
		return err
	}
	key := path[len(path)-1]
	child, ok := parent.Child(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, strings.Join(path, "/"))
	}
	if !child.runtime {
		return fmt.Errorf("%w: %s", ErrStaticModule, strings.Join(path, "/"))
	}
	parent.removeChild(key)
	return nil
}

// Update merges handler changes from raw into the existing tree. Children
// present in raw but not in the tree are skipped; their paths are returned.
func (t *ModuleTree) Update(raw *Module) [][]string {
	if raw == nil {
		return nil
	}
	var skipped [][]string
	updateNode(nil, t.root, raw, &skipped)
	return skipped
}

func updateNode(path []string, node *ModuleNode, raw *Module, skipped *[][]string) {
	node.update(raw)
	for _, key := range sortedKeys(raw.Modules) {
		childRaw := raw.Modules[key]
		childPath := appendPath(path, key)
		child, ok := node.Child(key)
		if !ok {
			*skipped = append(*skipped, childPath)
			continue
		}
		if childRaw == nil {
			continue
		}
		updateNode(childPath, child, childRaw, skipped)
	}
}

package store

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-store/pkg/reactive"
)

type handlerOrigin struct {
	path      []string
	namespace string
	key       string
	root      bool
}

type mutationEntry struct {
	origin handlerOrigin
	invoke func(payload any)
}

type actionEntry struct {
	origin handlerOrigin
	invoke func(payload any) *Future
}

type getterEntry struct {
	origin handlerOrigin
	invoke func() any
}

// registry holds the routing tables built by installModule. It is replaced
// wholesale by resetStore.
type registry struct {
	mutations  map[string][]mutationEntry
	actions    map[string][]actionEntry
	getters    map[string]getterEntry
	namespaces map[string]*ModuleNode
}

func newRegistry() *registry {
	return &registry{
		mutations:  map[string][]mutationEntry{},
		actions:    map[string][]actionEntry{},
		getters:    map[string]getterEntry{},
		namespaces: map[string]*ModuleNode{},
	}
}

// installModule registers node and its descendants. Unless the install is
// hot, a non-root module's state is grafted onto its parent's state slice
// and the node lets go of its seed state. The local context handed to the
// handlers lives only in their closures.
func (s *Store) installModule(rootState *reactive.Object, path []string, node *ModuleNode, hot bool) error {
	isRoot := len(path) == 0
	namespace := s.modules.Namespace(path)

	if !isRoot && !hot {
		parentState, ok := rootState.Lookup(path[:len(path)-1]...)
		if !ok {
			return fmt.Errorf("%w: no state for parent of %s", ErrModuleNotFound, strings.Join(path, "/"))
		}
		key := path[len(path)-1]
		seed := node.state
		s.withCommit(func() {
			parentState.Set(key, seed)
		})
		node.state = nil
	}

	if node.namespaced {
		if existing, ok := s.registry.namespaces[namespace]; ok && existing != node {
			s.diagnose(Diagnostic{
				Level:     LevelError,
				Code:      CodeDuplicateNamespace,
				Namespace: namespace,
				Path:      path,
				Message:   fmt.Sprintf("duplicate namespace %s for the namespaced module %s", namespace, strings.Join(path, "/")),
			})
		} else {
			s.registry.namespaces[namespace] = node
		}
	}

	local := newLocalContext(s, namespace, path)

	node.forEachMutation(func(key string, mutation Mutation) {
		s.registerMutation(namespace+key, mutation, local, handlerOrigin{path: path, namespace: namespace, key: key})
	})
	node.forEachAction(func(key string, action Action) {
		typ := namespace + key
		if action.Root {
			typ = key
		}
		s.registerAction(typ, action.Handler, local, handlerOrigin{path: path, namespace: namespace, key: key, root: action.Root})
	})
	node.forEachGetter(func(key string, getter Getter) {
		s.registerGetter(namespace+key, getter, local, handlerOrigin{path: path, namespace: namespace, key: key})
	})

	var err error
	node.forEachChild(func(key string, child *ModuleNode) {
		if err != nil {
			return
		}
		err = s.installModule(rootState, appendPath(path, key), child, hot)
	})
	return err
}

func (s *Store) registerMutation(typ string, mutation Mutation, local *LocalContext, origin handlerOrigin) {
	s.registry.mutations[typ] = append(s.registry.mutations[typ], mutationEntry{
		origin: origin,
		invoke: func(payload any) {
			mutation(local.State(), payload)
		},
	})
}

func (s *Store) registerAction(typ string, handler ActionHandler, local *LocalContext, origin handlerOrigin) {
	s.registry.actions[typ] = append(s.registry.actions[typ], actionEntry{
		origin: origin,
		invoke: func(payload any) *Future {
			result, err := handler(local.actionContext(), payload)
			if err != nil {
				return Rejected(err)
			}
			if future, ok := result.(*Future); ok && future != nil {
				return future
			}
			return Resolved(result)
		},
	})
}

func (s *Store) registerGetter(typ string, getter Getter, local *LocalContext, origin handlerOrigin) {
	if _, exists := s.registry.getters[typ]; exists {
		s.diagnose(Diagnostic{
			Level:     LevelError,
			Code:      CodeDuplicateGetter,
			Type:      typ,
			Namespace: origin.namespace,
			Path:      origin.path,
			Message:   "duplicate getter key: " + typ,
		})
		return
	}
	s.registry.getters[typ] = getterEntry{
		origin: origin,
		invoke: func() any {
			return getter(local.State(), local.Getters(), s.State(), s.Getters())
		},
	}
}

// resetStore discards the routing tables and reinstalls the whole tree over
// the current state.
func (s *Store) resetStore(hot bool) error {
	s.registry = newRegistry()
	state := s.State()
	if err := s.installModule(state, nil, s.modules.Root(), true); err != nil {
		return err
	}
	s.resetStoreVM(state, hot)
	return nil
}

// resetStoreVM binds state and the registered getters to a new reactive
// instance, then tears the previous one down.
func (s *Store) resetStoreVM(state *reactive.Object, hot bool) {
	old := s.vm
	if s.stopStateWatch != nil {
		s.stopStateWatch()
		s.stopStateWatch = nil
	}

	computed := make(map[string]func() any, len(s.registry.getters))
	for typ, entry := range s.registry.getters {
		computed[typ] = entry.invoke
	}
	s.vm = reactive.NewInstance(s.tracker, state, computed)
	s.stopStateWatch = s.vm.WatchState(s.onStateChange)

	if old != nil {
		if hot {
			s.withCommit(func() {
				old.SetState(nil)
			})
		}
		old.Destroy()
	}
	s.refreshWatchers()
}

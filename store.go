package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-store/internal/clone"
	"github.com/goliatone/go-store/pkg/reactive"
)

// Store is a hierarchical state container built from a tree of modules.
// A Store is not safe for concurrent use; action handlers that run
// asynchronously must hop back to the owning goroutine before committing.
type Store struct {
	id       uuid.UUID
	cfg      config
	modules  *ModuleTree
	registry *registry
	tracker  *reactive.Tracker
	vm       *reactive.Instance

	committing     bool
	pendingFlush   bool
	flushing       bool
	stopStateWatch func()

	subscribers       subscriptionList[MutationSubscriber]
	actionSubscribers subscriptionList[ActionSubscriber]
	watchers          subscriptionList[*storeWatcher]
}

// New builds the module tree for root, installs it and applies plugins.
func New(root *Module, opts ...Option) (*Store, error) {
	cfg := applyOptions(opts)
	if root == nil {
		root = &Module{}
	}
	if err := validateModule(root, nil); err != nil {
		return nil, err
	}
	tree, err := NewModuleTree(root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		id:       uuid.New(),
		cfg:      cfg,
		modules:  tree,
		registry: newRegistry(),
		tracker:  reactive.NewTracker(),
	}

	state := tree.Root().State()
	if err := s.installModule(state, nil, tree.Root(), false); err != nil {
		return nil, err
	}
	s.resetStoreVM(state, false)

	for _, plugin := range cfg.plugins {
		plugin(s)
	}
	if len(cfg.activityHooks) > 0 {
		ActivityPlugin(cfg.activityHooks, cfg.activityConfig)(s)
	}
	return s, nil
}

// ID identifies the store instance.
func (s *Store) ID() uuid.UUID {
	return s.id
}

// State returns the live root state.
func (s *Store) State() *reactive.Object {
	return s.vm.State()
}

// Getters returns a view over every registered getter by qualified key.
func (s *Store) Getters() Getters {
	return storeGetters{store: s}
}

// Strict reports whether strict mode is enabled.
func (s *Store) Strict() bool {
	return s.cfg.strict
}

// Commit runs every mutation handler registered under typ in one committing
// transaction, then notifies mutation subscribers. An unknown type is
// reported and leaves the state untouched. Call options only matter for
// local commits.
func (s *Store) Commit(typ string, payload any, _ ...CallOption) error {
	if err := checkType(typ); err != nil {
		return err
	}
	return s.commit(typ, payload)
}

// CommitMessage commits msg.Type() with msg itself as the payload.
func (s *Store) CommitMessage(msg Typed, _ ...CallOption) error {
	typ := messageType(msg)
	if err := checkType(typ); err != nil {
		return err
	}
	return s.commit(typ, msg)
}

func (s *Store) commit(typ string, payload any) error {
	entries, ok := s.registry.mutations[typ]
	if !ok {
		s.diagnose(Diagnostic{Level: LevelError, Code: CodeUnknownMutation, Type: typ, Message: "unknown mutation type: " + typ})
		return fmt.Errorf("%w: %s", ErrUnknownMutation, typ)
	}
	s.withCommit(func() {
		for _, entry := range entries {
			entry.invoke(payload)
		}
	})

	record := MutationRecord{Type: typ, Payload: payload}
	state := s.State()
	for _, sub := range s.subscribers.snapshot() {
		sub(record, state)
	}
	return nil
}

// Dispatch notifies action subscribers and runs every action handler
// registered under typ. It returns nil when typ is unknown. With several
// handlers the returned future settles once all of them have resolved, or
// rejects with the first rejection.
func (s *Store) Dispatch(typ string, payload any) *Future {
	if err := checkType(typ); err != nil {
		return Rejected(err)
	}
	return s.dispatch(typ, payload)
}

// DispatchMessage dispatches msg.Type() with msg itself as the payload.
func (s *Store) DispatchMessage(msg Typed) *Future {
	typ := messageType(msg)
	if err := checkType(typ); err != nil {
		return Rejected(err)
	}
	return s.dispatch(typ, msg)
}

func (s *Store) dispatch(typ string, payload any) *Future {
	entries, ok := s.registry.actions[typ]
	if !ok {
		s.diagnose(Diagnostic{Level: LevelError, Code: CodeUnknownAction, Type: typ, Message: "unknown action type: " + typ})
		return nil
	}

	record := ActionRecord{Type: typ, Payload: payload}
	state := s.State()
	for _, sub := range s.actionSubscribers.snapshot() {
		sub(record, state)
	}

	if len(entries) == 1 {
		return entries[0].invoke(payload)
	}
	futures := make([]*Future, len(entries))
	for i, entry := range entries {
		futures[i] = entry.invoke(payload)
	}
	return All(futures...)
}

// RegisterOption configures RegisterModule.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	preserveState bool
}

// PreserveState keeps the state already present at the module path instead
// of grafting the module's own state.
func PreserveState() RegisterOption {
	return func(cfg *registerConfig) { cfg.preserveState = true }
}

// RegisterModule adds a runtime module under path and installs it. The
// parent path must already be registered.
func (s *Store) RegisterModule(path []string, m *Module, opts ...RegisterOption) error {
	if len(path) == 0 {
		return s.registrationError(path, fmt.Errorf("%w: use New to provide the root", ErrRootModule))
	}
	if err := validateModule(m, path); err != nil {
		return s.registrationError(path, err)
	}
	cfg := registerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	parentPath := path[:len(path)-1]
	if !cfg.preserveState && s.HasModule(parentPath) {
		if _, ok := s.State().Lookup(parentPath...); !ok {
			return s.registrationError(path, fmt.Errorf("%w: no state for parent of %s", ErrModuleNotFound, strings.Join(path, "/")))
		}
	}

	if err := s.modules.Register(path, m, true); err != nil {
		return s.registrationError(path, err)
	}
	node, err := s.modules.Get(path)
	if err != nil {
		return s.registrationError(path, err)
	}
	if err := s.installModule(s.State(), path, node, cfg.preserveState); err != nil {
		s.rollbackRegistration(path, !cfg.preserveState)
		return s.registrationError(path, err)
	}
	s.resetStoreVM(s.State(), false)
	return nil
}

// rollbackRegistration detaches a module whose install failed part way and
// rebuilds the routing tables without it.
func (s *Store) rollbackRegistration(path []string, grafted bool) {
	if err := s.modules.Unregister(path); err != nil {
		return
	}
	if grafted {
		s.withCommit(func() {
			if parent, ok := s.State().Lookup(path[:len(path)-1]...); ok {
				parent.Delete(path[len(path)-1])
			}
		})
	}
	if err := s.resetStore(false); err != nil {
		s.diagnose(Diagnostic{Level: LevelError, Code: CodeInvalidRegistration, Path: path, Message: "rollback reinstall failed", Err: err})
	}
}

// UnregisterModule removes a runtime module and its state slice, then
// rebuilds the routing tables.
func (s *Store) UnregisterModule(path []string) error {
	if err := s.modules.Unregister(path); err != nil {
		return s.registrationError(path, err)
	}
	s.withCommit(func() {
		if parent, ok := s.State().Lookup(path[:len(path)-1]...); ok {
			parent.Delete(path[len(path)-1])
		}
	})
	return s.resetStore(false)
}

// HasModule reports whether a module is registered at path.
func (s *Store) HasModule(path []string) bool {
	_, err := s.modules.Get(path)
	return err == nil
}

// HotUpdate swaps handler definitions in place and reinstalls the store
// without touching state. Modules not already registered are skipped.
func (s *Store) HotUpdate(m *Module) error {
	if m == nil {
		return fmt.Errorf("%w: hot update definition is nil", ErrInvalidModule)
	}
	if err := validateModule(m, nil); err != nil {
		return err
	}
	for _, path := range s.modules.Update(m) {
		s.diagnose(Diagnostic{
			Level:   LevelWarn,
			Code:    CodeHotUpdateNewModule,
			Path:    path,
			Message: fmt.Sprintf("trying to add a new module %q on hot reloading, manual reload is needed", strings.Join(path, "/")),
		})
	}
	return s.resetStore(true)
}

// ReplaceState swaps the whole root state inside a committing transaction.
func (s *Store) ReplaceState(state any) error {
	next, err := reactive.FromValue(state)
	if err != nil {
		return fmt.Errorf("store: replace state: %w", err)
	}
	s.withCommit(func() {
		s.vm.SetState(next)
	})
	return nil
}

// Snapshot returns a deep copy of the root state as plain maps.
func (s *Store) Snapshot() map[string]any {
	return clone.Clone(s.State().ToMap())
}

// withCommit marks fn as an authorized state change. The previous flag is
// restored afterwards so nested commits unwind correctly; pending watchers
// flush once the outermost transaction completes.
func (s *Store) withCommit(fn func()) {
	committing := s.committing
	s.committing = true
	completed := false
	defer func() {
		s.committing = committing
		if completed && !committing && s.pendingFlush {
			s.flushWatchers()
		}
	}()
	fn()
	completed = true
}

func (s *Store) diagnose(d Diagnostic) {
	s.cfg.logger.LogDiagnostic(d)
}

func (s *Store) registrationError(path []string, err error) error {
	s.diagnose(Diagnostic{
		Level:   LevelError,
		Code:    CodeInvalidRegistration,
		Path:    path,
		Message: err.Error(),
		Err:     err,
	})
	return err
}

func checkType(typ string) error {
	if typ == "" {
		return assertion(ErrInvalidType, "expects a non-empty string as the type")
	}
	return nil
}

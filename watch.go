package store

import "github.com/goliatone/go-store/pkg/reactive"

// maxFlushPasses bounds how often watchers may re-trigger each other within
// one flush.
const maxFlushPasses = 100

// WatchOption configures Store.Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	deep      bool
	immediate bool
	sync      bool
}

// Deep also fires on changes nested inside an object result.
func Deep() WatchOption {
	return func(cfg *watchConfig) { cfg.deep = true }
}

// Immediate invokes the callback once with the current value.
func Immediate() WatchOption {
	return func(cfg *watchConfig) { cfg.immediate = true }
}

// Sync runs the watcher on every individual state change instead of once
// after the outermost commit.
func Sync() WatchOption {
	return func(cfg *watchConfig) { cfg.sync = true }
}

type storeWatcher struct {
	watcher *reactive.Watcher
	sync    bool
}

// Watch calls cb whenever the result of getter changes. The getter receives
// the root state and the store getters; reads are tracked so only relevant
// changes re-run it.
func (s *Store) Watch(getter func(state *reactive.Object, getters Getters) any, cb func(newValue, oldValue any), opts ...WatchOption) (func(), error) {
	if getter == nil {
		return func() {}, assertion(ErrNilGetter, "store.Watch only accepts a function")
	}
	cfg := watchConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	w := reactive.NewWatcher(s.tracker, func() any {
		return getter(s.State(), s.Getters())
	}, cb, reactive.WatchOptions{Deep: cfg.deep, Immediate: cfg.immediate})
	entry := &storeWatcher{watcher: w, sync: cfg.sync}
	remove := s.watchers.add(entry)
	return func() {
		w.Stop()
		remove()
	}, nil
}

func (s *Store) onStateChange(change reactive.Change) {
	if s.cfg.strict && assertionsEnabled && !s.committing {
		s.reportViolation(change)
	}
	if s.watchers.len() == 0 {
		return
	}
	for _, entry := range s.watchers.snapshot() {
		if entry.sync {
			entry.watcher.Run()
		}
	}
	s.pendingFlush = true
	if !s.committing {
		s.flushWatchers()
	}
}

func (s *Store) flushWatchers() {
	if s.flushing {
		return
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	for pass := 0; s.pendingFlush; pass++ {
		if pass == maxFlushPasses {
			s.pendingFlush = false
			s.diagnose(Diagnostic{
				Level:   LevelError,
				Code:    CodeWatcherLoop,
				Message: "watchers kept changing state; flush aborted",
			})
			return
		}
		s.pendingFlush = false
		for _, entry := range s.watchers.snapshot() {
			if !entry.sync {
				entry.watcher.Run()
			}
		}
	}
}

func (s *Store) refreshWatchers() {
	for _, entry := range s.watchers.snapshot() {
		entry.watcher.Refresh()
	}
}

package reactive

import "reflect"

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Deep records every key below an object result as a dependency and
	// always reports object results as changed.
	Deep bool
	// Immediate invokes the callback with the initial value on creation.
	Immediate bool
}

// Watcher re-evaluates a getter when its dependencies change and invokes a
// callback with the new and previous results.
type Watcher struct {
	computed *Computed
	callback func(newValue, oldValue any)
	opts     WatchOptions
	value    any
	stopped  bool
}

// NewWatcher evaluates getter once and returns the watcher.
func NewWatcher(tracker *Tracker, getter func() any, callback func(newValue, oldValue any), opts WatchOptions) *Watcher {
	w := &Watcher{callback: callback, opts: opts}
	w.computed = NewComputed(tracker, func() any {
		value := getter()
		if opts.Deep {
			if obj, ok := value.(*Object); ok {
				obj.ToMap()
			}
		}
		return value
	})
	w.value = w.computed.Get()
	if opts.Immediate && callback != nil {
		callback(w.value, nil)
	}
	return w
}

// Value returns the last observed result.
func (w *Watcher) Value() any {
	return w.value
}

// Run re-evaluates the getter when stale and fires the callback on change.
func (w *Watcher) Run() {
	if w.stopped || !w.computed.stale() {
		return
	}
	w.evaluate()
}

// Refresh re-evaluates the getter unconditionally. It is used after the
// dependencies were rebuilt elsewhere, for example after an instance swap.
func (w *Watcher) Refresh() {
	if w.stopped {
		return
	}
	w.computed.Invalidate()
	w.evaluate()
}

// Stop detaches the watcher. Stopping twice is a no-op.
func (w *Watcher) Stop() {
	w.stopped = true
	w.computed.Dispose()
}

// Stopped reports whether Stop has run.
func (w *Watcher) Stopped() bool {
	return w.stopped
}

func (w *Watcher) evaluate() {
	value := w.computed.Get()
	if !w.changed(value) {
		return
	}
	old := w.value
	w.value = value
	if w.callback != nil {
		w.callback(value, old)
	}
}

func (w *Watcher) changed(value any) bool {
	if w.opts.Deep {
		return true
	}
	if _, ok := value.(*Object); ok {
		return true
	}
	return !reflect.DeepEqual(value, w.value)
}

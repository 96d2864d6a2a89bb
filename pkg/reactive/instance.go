package reactive

import "sort"

// stateKey is the single data key of an instance; replacing it swaps the
// whole root state.
const stateKey = "state"

// Instance binds a root state object to a set of computed entries.
type Instance struct {
	data      *Object
	computed  map[string]*Computed
	tracker   *Tracker
	destroyed bool
}

// NewInstance observes state under a fresh data holder and wraps every entry
// of computed in a Computed sharing tracker.
func NewInstance(tracker *Tracker, state *Object, computed map[string]func() any) *Instance {
	if tracker == nil {
		tracker = NewTracker()
	}
	data := NewObject()
	data.tracker = tracker
	if state != nil {
		data.Set(stateKey, state)
	}

	inst := &Instance{
		data:     data,
		computed: make(map[string]*Computed, len(computed)),
		tracker:  tracker,
	}
	for key, fn := range computed {
		if fn == nil {
			continue
		}
		inst.computed[key] = NewComputed(tracker, fn)
	}
	return inst
}

// State returns the current root state.
func (i *Instance) State() *Object {
	if i == nil {
		return nil
	}
	state, _ := i.data.Object(stateKey)
	return state
}

// SetState replaces the root state. A nil state clears it.
func (i *Instance) SetState(state *Object) {
	if state == nil {
		i.data.Set(stateKey, nil)
		return
	}
	i.data.Set(stateKey, state)
}

// Computed returns the value of the computed entry registered under key.
func (i *Instance) Computed(key string) (any, bool) {
	if i == nil {
		return nil, false
	}
	c, ok := i.computed[key]
	if !ok {
		return nil, false
	}
	return c.Get(), true
}

// Keys returns the computed keys in sorted order.
func (i *Instance) Keys() []string {
	if i == nil {
		return nil
	}
	keys := make([]string, 0, len(i.computed))
	for key := range i.computed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// WatchState deep-watches the root state, including its replacement.
// Change paths are relative to the root state; a replacement has an empty
// path.
func (i *Instance) WatchState(fn func(Change)) func() {
	return i.data.Watch(func(c Change) {
		if len(c.Path) > 0 {
			c.Path = c.Path[1:]
		}
		fn(c)
	})
}

// Destroyed reports whether Destroy has run.
func (i *Instance) Destroyed() bool {
	return i == nil || i.destroyed
}

// Destroy stops every deep watch on the instance and freezes its computed
// entries. The root state object itself is left untouched.
func (i *Instance) Destroy() {
	if i == nil || i.destroyed {
		return
	}
	i.destroyed = true
	for _, w := range i.data.watchers {
		w.active = false
	}
	i.data.watchers = nil
	for _, c := range i.computed {
		c.Dispose()
	}
	i.data.tracker = nil
}

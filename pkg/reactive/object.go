package reactive

import (
	"encoding/json"
	"fmt"
	"sort"
)

// shapeKey is the pseudo key bumped whenever a key is added or removed.
const shapeKey = "\x00shape"

// Change describes a single write observed by a deep watcher.
type Change struct {
	// Path is the location of the written key relative to the watched object.
	Path    []string
	Key     string
	Old     any
	New     any
	Deleted bool
}

// Object is an observed, string-keyed node of a state tree.
type Object struct {
	fields   map[string]any
	versions map[string]uint64
	clock    uint64
	parent   *Object
	key      string
	watchers []*deepWatch
	tracker  *Tracker
}

type deepWatch struct {
	fn     func(Change)
	active bool
}

// NewObject returns an empty observed object.
func NewObject() *Object {
	return &Object{
		fields:   map[string]any{},
		versions: map[string]uint64{},
	}
}

// FromValue converts value into an observed object. It accepts *Object
// (returned as is), map[string]any, a factory func() any, nil (empty object)
// and anything that JSON-encodes to an object.
func FromValue(value any) (*Object, error) {
	switch typed := value.(type) {
	case nil:
		return NewObject(), nil
	case *Object:
		if typed == nil {
			return NewObject(), nil
		}
		return typed, nil
	case map[string]any:
		return observeMap(typed), nil
	case func() any:
		if typed == nil {
			return NewObject(), nil
		}
		return FromValue(typed())
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("reactive: encode %T: %w", value, err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("reactive: state %T must encode to an object: %w", value, err)
		}
		return observeMap(decoded), nil
	}
}

func observeMap(values map[string]any) *Object {
	obj := NewObject()
	for key, value := range values {
		value = observe(value)
		if child, ok := value.(*Object); ok {
			child.attach(obj, key)
		}
		obj.fields[key] = value
	}
	return obj
}

func observe(value any) any {
	if m, ok := value.(map[string]any); ok {
		return observeMap(m)
	}
	if obj, ok := value.(*Object); ok && obj == nil {
		return nil
	}
	return value
}

// Get returns the value stored under key, recording the read when a tracked
// evaluation is in progress.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	o.track(key)
	value, ok := o.fields[key]
	return value, ok
}

// Value returns the value stored under key or nil.
func (o *Object) Value(key string) any {
	value, _ := o.Get(key)
	return value
}

// Object returns the child object stored under key.
func (o *Object) Object(key string) (*Object, bool) {
	value, ok := o.Get(key)
	if !ok {
		return nil, false
	}
	child, ok := value.(*Object)
	return child, ok && child != nil
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.Get(key)
	return ok
}

// Keys returns the keys in sorted order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	o.track(shapeKey)
	keys := make([]string, 0, len(o.fields))
	for key := range o.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	o.track(shapeKey)
	return len(o.fields)
}

// Lookup walks path from o, returning the object found at the end.
func (o *Object) Lookup(path ...string) (*Object, bool) {
	current := o
	for _, segment := range path {
		if current == nil {
			return nil, false
		}
		next, ok := current.Object(segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// Set assigns value to key and notifies deep watchers. Plain maps are
// converted into observed objects, so Set also serves to graft new subtrees.
func (o *Object) Set(key string, value any) {
	o.ensure()
	value = observe(value)
	old, existed := o.fields[key]
	if child, ok := old.(*Object); ok && child != value && child.parent == o {
		child.detach()
	}
	if child, ok := value.(*Object); ok {
		child.attach(o, key)
	}
	o.fields[key] = value
	o.bump(key, !existed)
	o.notify(Change{Key: key, Old: old, New: value})
}

// Delete removes key and notifies deep watchers. Deleting a missing key is a
// no-op.
func (o *Object) Delete(key string) {
	old, existed := o.fields[key]
	if !existed {
		return
	}
	if child, ok := old.(*Object); ok && child.parent == o {
		child.detach()
	}
	delete(o.fields, key)
	o.bump(key, true)
	o.notify(Change{Key: key, Old: old, Deleted: true})
}

// ToMap returns a plain copy of the subtree. Nested objects are converted
// recursively; other values are copied by assignment.
func (o *Object) ToMap() map[string]any {
	if o == nil {
		return nil
	}
	out := make(map[string]any, len(o.fields))
	for _, key := range o.Keys() {
		value, _ := o.Get(key)
		if child, ok := value.(*Object); ok {
			out[key] = child.ToMap()
			continue
		}
		out[key] = value
	}
	return out
}

// MarshalJSON encodes the subtree as a JSON object.
func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.ToMap())
}

// Watch registers fn to run synchronously after every write to o or any
// object below it. The returned function stops the watch.
func (o *Object) Watch(fn func(Change)) func() {
	w := &deepWatch{fn: fn, active: true}
	o.watchers = append(o.watchers, w)
	return func() {
		if !w.active {
			return
		}
		w.active = false
		for i, candidate := range o.watchers {
			if candidate == w {
				o.watchers = append(o.watchers[:i], o.watchers[i+1:]...)
				break
			}
		}
	}
}

func (o *Object) ensure() {
	if o.fields == nil {
		o.fields = map[string]any{}
	}
	if o.versions == nil {
		o.versions = map[string]uint64{}
	}
}

func (o *Object) attach(parent *Object, key string) {
	o.parent = parent
	o.key = key
}

func (o *Object) detach() {
	o.parent = nil
	o.key = ""
}

func (o *Object) bump(key string, shapeChanged bool) {
	o.clock++
	o.versions[key] = o.clock
	if shapeChanged {
		o.versions[shapeKey] = o.clock
	}
}

func (o *Object) version(key string) uint64 {
	return o.versions[key]
}

func (o *Object) root() *Object {
	current := o
	for current.parent != nil {
		current = current.parent
	}
	return current
}

func (o *Object) track(key string) {
	if tracker := o.root().tracker; tracker != nil {
		tracker.record(o, key)
	}
}

func (o *Object) notify(change Change) {
	path := []string{change.Key}
	for current := o; current != nil; current = current.parent {
		if len(current.watchers) > 0 {
			change.Path = append([]string(nil), path...)
			watchers := append([]*deepWatch(nil), current.watchers...)
			for _, w := range watchers {
				if w.active {
					w.fn(change)
				}
			}
		}
		if current.parent != nil {
			path = append([]string{current.key}, path...)
		}
	}
}

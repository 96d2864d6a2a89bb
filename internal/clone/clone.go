// Package clone deep-copies payloads and state values before they are handed
// to subscribers, plugins and activity hooks.
package clone

import "reflect"

// Cloner lets a type supply its own copy. CloneValue must return a value
// assignable to the receiver's type; anything else is ignored.
type Cloner interface {
	CloneValue() any
}

var clonerType = reflect.TypeOf((*Cloner)(nil)).Elem()

// Clone returns a deep copy of value. Shared and cyclic pointers, maps and
// slices keep their shape in the copy. Unexported struct fields are copied
// shallowly; functions and channels are shared.
func Clone[T any](value T) T {
	c := cloner{seen: map[visit]reflect.Value{}}
	out := c.value(reflect.ValueOf(value))
	if !out.IsValid() {
		var zero T
		return zero
	}
	if typed, ok := out.Interface().(T); ok {
		return typed
	}
	return value
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type cloner struct {
	seen map[visit]reflect.Value
}

func (c cloner) value(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}
	if custom, ok := c.custom(v); ok {
		return custom
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.New(v.Type().Elem())
		c.seen[key] = out
		out.Elem().Set(c.value(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		inner := c.value(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(c.value(v.Field(i)))
			}
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		c.seen[key] = out
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), c.value(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		key := visit{ptr: v.Pointer(), typ: v.Type(), len: v.Len()}
		if done, ok := c.seen[key]; ok {
			return done
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		c.seen[key] = out
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.value(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(c.value(v.Index(i)))
		}
		return out
	default:
		return v
	}
}

func (c cloner) custom(v reflect.Value) (reflect.Value, bool) {
	if v.Kind() == reflect.Interface || !v.Type().Implements(clonerType) {
		return reflect.Value{}, false
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return reflect.Value{}, false
	}
	if !v.CanInterface() {
		return reflect.Value{}, false
	}
	copied := v.Interface().(Cloner).CloneValue()
	if copied == nil {
		return reflect.Zero(v.Type()), true
	}
	out := reflect.ValueOf(copied)
	if !out.Type().AssignableTo(v.Type()) {
		return reflect.Value{}, false
	}
	if out.Type() != v.Type() {
		converted := reflect.New(v.Type()).Elem()
		converted.Set(out)
		out = converted
	}
	return out, true
}

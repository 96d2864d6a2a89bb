package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrFunctionExists   = errors.New("store: function already registered")
	ErrFunctionNotFound = errors.New("store: function not registered")
	ErrFunctionReserved = errors.New("store: function name is reserved")
)

// Function is a custom function callable from getter expressions.
type Function func(args ...any) (any, error)

// Names bound by every engine; registry functions cannot shadow them.
var reservedExpressionNames = map[string]struct{}{
	"state": {}, "rootstate": {}, "now": {}, "args": {},
	"getter": {}, "rootgetter": {}, "call": {},
}

// FunctionRegistry holds custom expression functions. Names are matched
// case-insensitively. It is safe for concurrent use and the nil registry is
// empty.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: map[string]Function{}}
}

func functionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	key := functionKey(name)
	switch {
	case key == "":
		return fmt.Errorf("%w: function name must not be empty", ErrInvalidModule)
	case fn == nil:
		return fmt.Errorf("%w: function %q is nil", ErrInvalidModule, name)
	}
	if _, reserved := reservedExpressionNames[key]; reserved {
		return fmt.Errorf("%w: %q", ErrFunctionReserved, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	if r.funcs == nil {
		r.funcs = map[string]Function{}
	}
	r.funcs[key] = fn
	return nil
}

// MustRegister is like Register but panics on error. It returns r so
// registrations can be chained.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Unregister removes name and reports whether it was present.
func (r *FunctionRegistry) Unregister(name string) bool {
	if r == nil {
		return false
	}
	key := functionKey(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.funcs[key]
	delete(r.funcs, key)
	return ok
}

func (r *FunctionRegistry) lookup(name string) Function {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcs[functionKey(name)]
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	return r.lookup(name) != nil
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	fn := r.lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Clone copies the registrations into a new registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{funcs: make(map[string]Function, len(r.funcs))}
	for key, fn := range r.funcs {
		out.funcs[key] = fn
	}
	return out
}

// Names lists the registered (lower-cased) names in order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for key := range r.funcs {
		names = append(names, key)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

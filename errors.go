package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownMutation is returned when no mutation is registered for a type.
	ErrUnknownMutation = errors.New("store: unknown mutation type")
	// ErrUnknownAction is reported when no action is registered for a type.
	ErrUnknownAction = errors.New("store: unknown action type")
	// ErrModuleNotFound is returned when a module path does not resolve.
	ErrModuleNotFound = errors.New("store: module not found")
	// ErrModuleExists is returned when registering over an existing module.
	ErrModuleExists = errors.New("store: module already registered")
	// ErrInvalidPath is returned for empty or malformed module paths.
	ErrInvalidPath = errors.New("store: invalid module path")
	// ErrRootModule is returned when the root is targeted by RegisterModule.
	ErrRootModule = errors.New("store: cannot register the root module")
	// ErrStaticModule is returned when unregistering a module declared at
	// construction time.
	ErrStaticModule = errors.New("store: cannot unregister a static module")
	// ErrInvalidType is returned when a commit or dispatch carries no type.
	ErrInvalidType = errors.New("store: type must be a non-empty string")
	// ErrNilGetter is returned when Watch receives a nil getter.
	ErrNilGetter = errors.New("store: watch getter must not be nil")
	// ErrInvalidModule is returned when a module definition has nil handlers.
	ErrInvalidModule = errors.New("store: invalid module definition")
	// ErrNoEvaluator is returned when an expression engine is not linked
	// into the build.
	ErrNoEvaluator = errors.New("store: evaluator not configured")
)

// AssertionError reports programmer errors caught by development builds.
// Builds tagged production skip those checks.
type AssertionError struct {
	Message string
	Err     error
}

func (e *AssertionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return "store: assertion failed: " + e.Message
	}
	return fmt.Sprintf("store: assertion failed: %s: %v", e.Message, e.Err)
}

func (e *AssertionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// assertion returns an *AssertionError in development builds and nil when
// assertions are compiled out.
func assertion(err error, format string, args ...any) error {
	if !assertionsEnabled {
		return nil
	}
	return &AssertionError{Message: fmt.Sprintf(format, args...), Err: err}
}

package store

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-store/internal/hydrate"
)

// DecodeOption configures DecodeState.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	strict bool
}

// DecodeStrict rejects state keys that have no matching struct field.
func DecodeStrict() DecodeOption {
	return func(cfg *decodeConfig) { cfg.strict = true }
}

// DecodeState decodes the state subtree at path into T through its JSON
// form. When T, or *T, has a Validate() error method it runs after decoding.
func DecodeState[T any](s *Store, path []string, opts ...DecodeOption) (T, error) {
	var zero T
	cfg := decodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	state, ok := s.State().Lookup(path...)
	if !ok {
		return zero, fmt.Errorf("%w: no state at %q", ErrInvalidPath, strings.Join(path, "/"))
	}

	decoderOpts := []hydrate.DecoderOption[T]{
		hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return validateValue(*value)
		}),
	}
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	decoder := hydrate.NewDecoder[T](decoderOpts...)
	return decoder.Decode(hydrate.Context{
		StoreID: s.ID().String(),
		Path:    strings.Join(path, "/"),
	}, state.ToMap())
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if rv := reflect.ValueOf(&value).Elem(); rv.Kind() != reflect.Pointer {
		if v, ok := rv.Addr().Interface().(interface{ Validate() error }); ok {
			return v.Validate()
		}
	}
	return nil
}

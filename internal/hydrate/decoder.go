// Package hydrate turns plain state maps into typed values.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Stages reported by DecodeError.
const (
	StagePayload  = "payload"
	StagePreHook  = "pre-hook"
	StageDecode   = "decode"
	StagePostHook = "post-hook"
)

// ErrNilPayload is returned when Decode receives no payload.
var ErrNilPayload = errors.New("payload is nil")

// DecodeError reports the stage and state path where decoding failed.
type DecodeError struct {
	Stage string
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("hydrate: %s %q: %v", e.Stage, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Context identifies the state subtree being decoded.
type Context struct {
	StoreID string
	Path    string
}

func (ctx Context) fail(stage string, err error) error {
	return &DecodeError{Stage: stage, Path: ctx.Path, Err: err}
}

// PreHook rewrites the payload before decoding. Returning nil keeps the
// payload it was given.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the decoded value.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts state maps into T. Payloads are normalized through JSON
// first, so hooks always see JSON types and never the caller's map.
type Decoder[T any] struct {
	pre       []PreHook
	post      []PostHook[T]
	configure []func(*json.Decoder)
	custom    CustomDecoder[T]
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithUseNumber decodes numbers into json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).UseNumber)
}

// WithDisallowUnknownFields rejects keys without a matching field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T]((*json.Decoder).DisallowUnknownFields)
}

// WithDecoderConfig exposes the json.Decoder used for the decode stage.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.configure = append(d.configure, configure)
		}
	}
}

func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs payload through the pre hooks, the decode stage and the post
// hooks. Failures are *DecodeError.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, ctx.fail(StagePayload, ErrNilPayload)
	}
	current, err := normalize(payload)
	if err != nil {
		return zero, ctx.fail(StagePayload, err)
	}
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, ctx.fail(StagePreHook, err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, ctx.fail(StageDecode, err)
	}

	for _, hook := range d.post {
		if err := hook(ctx, &result); err != nil {
			return zero, ctx.fail(StagePostHook, err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	if d.custom != nil {
		return d.custom(ctx, payload)
	}
	var result T
	raw, err := json.Marshal(payload)
	if err != nil {
		return result, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.configure {
		configure(dec)
	}
	err = dec.Decode(&result)
	return result, err
}

func normalize(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

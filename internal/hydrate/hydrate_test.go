package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type cartState struct {
	Items    []cartItem `json:"items"`
	Discount discount   `json:"discount"`
	Currency string     `json:"currency"`
	Tags     []string   `json:"tags"`
}

type cartItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type discount struct {
	Code    string `json:"code"`
	Percent int    `json:"percent"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		ctx       Context
		input     map[string]any
		opts      []DecoderOption[cartState]
		expect    cartState
		expectErr string
	}{
		{
			name: "plain decode",
			ctx:  Context{Path: "cart"},
			input: map[string]any{
				"items":    []any{map[string]any{"sku": "A1", "quantity": 2}},
				"currency": "EUR",
			},
			expect: cartState{Items: []cartItem{{SKU: "A1", Quantity: 2}}, Currency: "EUR"},
		},
		{
			name:  "pre hook splits discount shorthand",
			ctx:   Context{Path: "cart"},
			input: map[string]any{"discount": "SPRING:15"},
			opts:  []DecoderOption[cartState]{WithPreHook[cartState](discountPreHook)},
			expect: cartState{
				Discount: discount{Code: "SPRING", Percent: 15},
			},
		},
		{
			name:   "post hook tags with store and path",
			ctx:    Context{StoreID: "s-1", Path: "shop/cart"},
			input:  map[string]any{"currency": "USD"},
			opts:   []DecoderOption[cartState]{WithPostHook[cartState](tagPostHook)},
			expect: cartState{Currency: "USD", Tags: []string{"s-1:shop/cart"}},
		},
		{
			name:      "disallow unknown fields",
			ctx:       Context{Path: "cart"},
			input:     map[string]any{"currency": "USD", "stale": true},
			opts:      []DecoderOption[cartState]{WithDisallowUnknownFields[cartState]()},
			expectErr: `decode "cart"`,
		},
		{
			name:      "pre hook failure",
			ctx:       Context{Path: "cart"},
			input:     map[string]any{"discount": "broken"},
			opts:      []DecoderOption[cartState]{WithPreHook[cartState](discountPreHook)},
			expectErr: "pre-hook",
		},
		{
			name:  "custom decoder",
			ctx:   Context{Path: "cart"},
			input: map[string]any{"snapshot": `{"currency":"GBP"}`},
			opts: []DecoderOption[cartState]{WithCustomDecoder[cartState](func(_ Context, payload map[string]any) (cartState, error) {
				var out cartState
				raw, _ := payload["snapshot"].(string)
				err := json.Unmarshal([]byte(raw), &out)
				return out, err
			})},
			expect: cartState{Currency: "GBP"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder[cartState](tc.opts...)
			result, err := decoder.Decode(tc.ctx, tc.input)

			if tc.expectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.expectErr)
				}
				if !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded state mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecoderRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[cartState]().Decode(Context{Path: "cart"}, nil)
	if !errors.Is(err, ErrNilPayload) {
		t.Fatalf("expected nil payload error, got %v", err)
	}
}

func TestDecodeErrorReportsStage(t *testing.T) {
	rejected := errors.New("rejected")
	decoder := NewDecoder[cartState](WithPostHook[cartState](func(Context, *cartState) error {
		return rejected
	}))
	_, err := decoder.Decode(Context{Path: "shop/cart"}, map[string]any{})

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %T", err)
	}
	if decodeErr.Stage != StagePostHook || decodeErr.Path != "shop/cart" {
		t.Fatalf("unexpected error metadata: %+v", decodeErr)
	}
	if !errors.Is(err, rejected) {
		t.Fatalf("expected hook error in chain")
	}
	if err.Error() != `hydrate: post-hook "shop/cart": rejected` {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"discount": "SPRING:15"}
	decoder := NewDecoder[cartState](WithPreHook[cartState](discountPreHook))
	if _, err := decoder.Decode(Context{Path: "cart"}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["discount"] != "SPRING:15" {
		t.Fatalf("expected input untouched, got %v", input["discount"])
	}
}

func TestDecoderUseNumber(t *testing.T) {
	decoder := NewDecoder[map[string]any](WithUseNumber[map[string]any]())
	out, err := decoder.Decode(Context{Path: "counter"}, map[string]any{"count": 3})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out["count"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", out["count"])
	}
}

func discountPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["discount"].(string)
	if !ok || value == "" {
		return payload, nil
	}
	code, percent, found := strings.Cut(value, ":")
	if !found {
		return nil, fmt.Errorf("invalid discount shorthand %q", value)
	}
	var n int
	if _, err := fmt.Sscanf(percent, "%d", &n); err != nil {
		return nil, err
	}
	payload["discount"] = map[string]any{"code": code, "percent": n}
	return payload, nil
}

func tagPostHook(ctx Context, state *cartState) error {
	if state == nil {
		return errors.New("state is nil")
	}
	if len(state.Tags) == 0 {
		state.Tags = []string{ctx.StoreID + ":" + ctx.Path}
	}
	return nil
}

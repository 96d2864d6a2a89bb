package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-store/pkg/reactive"
)

func sampleTree(t *testing.T) *ModuleTree {
	t.Helper()
	tree, err := NewModuleTree(&Module{
		Modules: map[string]*Module{
			"account": {
				Namespaced: true,
				Modules: map[string]*Module{
					"profile":  {},
					"settings": {Namespaced: true},
				},
			},
			"cart": {},
		},
	})
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tree
}

func TestModuleTreeNamespace(t *testing.T) {
	tree := sampleTree(t)
	cases := []struct {
		path []string
		want string
	}{
		{path: nil, want: ""},
		{path: []string{"cart"}, want: ""},
		{path: []string{"account"}, want: "account/"},
		{path: []string{"account", "profile"}, want: "account/"},
		{path: []string{"account", "settings"}, want: "account/settings/"},
	}
	for _, tc := range cases {
		if got := tree.Namespace(tc.path); got != tc.want {
			t.Fatalf("namespace %v: expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestModuleTreeGet(t *testing.T) {
	tree := sampleTree(t)
	node, err := tree.Get([]string{"account", "settings"})
	if err != nil || !node.Namespaced() {
		t.Fatalf("expected namespaced settings node, got %v", err)
	}
	if !reflect.DeepEqual(tree.Root().ChildKeys(), []string{"account", "cart"}) {
		t.Fatalf("unexpected root children %v", tree.Root().ChildKeys())
	}
	if _, err := tree.Get([]string{"account", "missing"}); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound, got %v", err)
	}
}

func TestModuleTreeRegisterAndUnregister(t *testing.T) {
	tree := sampleTree(t)
	if err := tree.Register([]string{"cart", "promo"}, &Module{Modules: map[string]*Module{"codes": {}}}, true); err != nil {
		t.Fatalf("register: %v", err)
	}
	nested, err := tree.Get([]string{"cart", "promo", "codes"})
	if err != nil || !nested.Runtime() {
		t.Fatalf("nested children inherit the runtime flag, got %v", err)
	}
	if err := tree.Register([]string{"cart", "promo"}, &Module{}, true); !errors.Is(err, ErrModuleExists) {
		t.Fatalf("expected ErrModuleExists, got %v", err)
	}
	if err := tree.Unregister([]string{"account"}); !errors.Is(err, ErrStaticModule) {
		t.Fatalf("expected ErrStaticModule, got %v", err)
	}
	if err := tree.Unregister([]string{"cart", "promo"}); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if _, ok := tree.Root().Child("cart"); !ok {
		t.Fatalf("parent must survive unregister")
	}
	if _, err := tree.Get([]string{"cart", "promo"}); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("expected module to be gone, got %v", err)
	}
}

func TestModuleTreeUpdate(t *testing.T) {
	tree := sampleTree(t)
	skipped := tree.Update(&Module{
		Modules: map[string]*Module{
			"cart": {Mutations: map[string]Mutation{"add": func(*reactive.Object, any) {}}},
			"wish": {},
		},
	})
	if !reflect.DeepEqual(skipped, [][]string{{"wish"}}) {
		t.Fatalf("unexpected skipped paths %v", skipped)
	}
	cart, _ := tree.Root().Child("cart")
	if _, ok := cart.mutations["add"]; !ok {
		t.Fatalf("expected updated mutation on cart")
	}
}

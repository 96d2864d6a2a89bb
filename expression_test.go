package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-store/pkg/reactive"
)

func engineOptions(cache ProgramCache, registry *FunctionRegistry) []EngineOption {
	var opts []EngineOption
	if cache != nil {
		opts = append(opts, WithProgramCache(cache))
	}
	if registry != nil {
		opts = append(opts, WithFunctionRegistry(registry))
	}
	return opts
}

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewExprEvaluator(engineOptions(cache, registry)...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewCELEvaluator(engineOptions(cache, registry)...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			return NewJSEvaluator(engineOptions(cache, registry)...)
		},
	},
}

func skipUnavailable(t *testing.T, engine string) {
	t.Helper()
	if engine == "js" && !jsEvaluatorAvailable() {
		t.Skip("js evaluator requires the js_eval build tag")
	}
}

func number(t *testing.T, value any) float64 {
	t.Helper()
	switch typed := value.(type) {
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case float64:
		return typed
	default:
		t.Fatalf("expected a number, got %T (%v)", value, value)
		return 0
	}
}

func toFloat(value any) (float64, error) {
	switch typed := value.(type) {
	case int:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case float64:
		return typed, nil
	default:
		return 0, fmt.Errorf("not a number: %T", value)
	}
}

func TestExpressionGettersAcrossEvaluators(t *testing.T) {
	cases := []struct {
		name string
		expr string
		opts []ExpressionOption
		want float64
	}{
		{name: "local state", expr: "state.count * 2", want: 6},
		{name: "local getter", expr: `getter("base") + 1`, want: 4},
		{name: "root state", expr: "rootState.settings.factor * state.count", want: 30},
		{name: "args", expr: "args.bonus + state.count", opts: []ExpressionOption{WithExpressionArgs(map[string]any{"bonus": 2})}, want: 5},
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			evaluator := factory.new(nil, nil)

			getters := map[string]Getter{
				"base": func(state *reactive.Object, _ Getters, _ *reactive.Object, _ Getters) any {
					return state.Value("count")
				},
			}
			for _, tc := range cases {
				getter, err := ExpressionGetter(evaluator, tc.expr, tc.opts...)
				if err != nil {
					t.Fatalf("%s: compile: %v", tc.name, err)
				}
				getters[tc.name] = getter
			}

			s := mustStore(t, &Module{
				State: map[string]any{"settings": map[string]any{"factor": 10}},
				Modules: map[string]*Module{
					"calc": {
						State:   map[string]any{"count": 3},
						Getters: getters,
					},
				},
			})

			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					got := s.Getters().Value(tc.name)
					if number(t, got) != tc.want {
						t.Fatalf("expected %v, got %v", tc.want, got)
					}
				})
			}
		})
	}
}

func TestExpressionGetterFollowsState(t *testing.T) {
	s := mustStore(t, &Module{
		State:     map[string]any{"count": 1},
		Mutations: map[string]Mutation{"increment": increment},
		Getters: map[string]Getter{
			"large": MustExpressionGetter(nil, "count > 2"),
		},
	})
	if s.Getters().Value("large") != false {
		t.Fatalf("expected false before commits")
	}
	_ = s.Commit("increment", 2)
	if s.Getters().Value("large") != true {
		t.Fatalf("expected getter to recompute after commit")
	}
}

func TestExpressionGetterCompileErrors(t *testing.T) {
	if _, err := ExpressionGetter(nil, "   "); !errors.Is(err, ErrInvalidModule) {
		t.Fatalf("expected ErrInvalidModule, got %v", err)
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			_, err := ExpressionGetter(factory.new(nil, nil), "state.count +")
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected EvaluationError, got %v", err)
			}
			if evalErr.Engine != factory.name {
				t.Fatalf("expected engine %q, got %q", factory.name, evalErr.Engine)
			}
		})
	}
}

func TestJSEvaluatorWithoutBuildTag(t *testing.T) {
	if jsEvaluatorAvailable() {
		t.Skip("js evaluator is compiled in")
	}
	_, err := ExpressionGetter(NewJSEvaluator(), "state.count")
	if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestExpressionGetterRuntimeError(t *testing.T) {
	boom := errors.New("boom")
	registry := NewFunctionRegistry().MustRegister("explode", func(...any) (any, error) {
		return nil, boom
	})
	rec := &diagnosticRecorder{}
	var handled error
	var events []EvaluatorLogEvent

	getter, err := ExpressionGetter(
		NewExprEvaluator(WithFunctionRegistry(registry)),
		"explode()",
		WithExpressionScope("cart/"),
		WithExpressionDiagnostics(rec.logger()),
		WithExpressionErrorHandler(func(err error) { handled = err }),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	s := mustStore(t, &Module{Getters: map[string]Getter{"broken": getter}})

	if got := s.Getters().Value("broken"); got != nil {
		t.Fatalf("failed evaluation should yield nil, got %v", got)
	}
	if handled == nil || !strings.Contains(handled.Error(), "boom") {
		t.Fatalf("expected handler to receive boom, got %v", handled)
	}
	var evalErr *EvaluationError
	if !errors.As(handled, &evalErr) || evalErr.Scope != "cart/" {
		t.Fatalf("expected scoped EvaluationError, got %v", handled)
	}
	if !rec.has(CodeEvaluationFailed) {
		t.Fatalf("expected evaluation diagnostic, got %v", rec.codes())
	}
	if len(events) != 1 || events[0].Engine != "expr" || events[0].Err == nil {
		t.Fatalf("unexpected evaluator events %+v", events)
	}
}

func TestExpressionClock(t *testing.T) {
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	getter := MustExpressionGetter(nil, "now.Year()", WithExpressionClock(func() time.Time { return fixed }))
	s := mustStore(t, &Module{Getters: map[string]Getter{"year": getter}})
	if got := s.Getters().Value("year"); got != 2024 {
		t.Fatalf("expected 2024, got %v", got)
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("discount", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("discount expects 2 args")
		}
		price, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		percent, err := toFloat(args[1])
		if err != nil {
			return nil, err
		}
		return price * (100 - percent) / 100, nil
	}); err != nil {
		t.Fatalf("register discount: %v", err)
	}

	expressions := map[string]string{
		"expr": `call("discount", state.price, 10)`,
		"cel":  `call("discount", [state.price, 10])`,
		"js":   `call("discount", state.price, 10)`,
	}

	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			getter, err := ExpressionGetter(factory.new(nil, registry), expressions[factory.name])
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			s := mustStore(t, &Module{
				State:   map[string]any{"price": 100},
				Getters: map[string]Getter{"sale": getter},
			})
			if got := number(t, s.Getters().Value("sale")); got != 90 {
				t.Fatalf("expected 90, got %v", got)
			}
		})
	}
}

func TestExprCallsRegistryFunctionsDirectly(t *testing.T) {
	registry := NewFunctionRegistry().MustRegister("half", func(args ...any) (any, error) {
		value, err := toFloat(args[0])
		return value / 2, err
	})
	getter := MustExpressionGetter(NewExprEvaluator(WithFunctionRegistry(registry)), "half(total)")
	s := mustStore(t, &Module{State: map[string]any{"total": 8}, Getters: map[string]Getter{"half": getter}})
	if got := s.Getters().Value("half"); got != 4.0 {
		t.Fatalf("expected 4, got %v", got)
	}
}

func TestFunctionRegistryRules(t *testing.T) {
	registry := NewFunctionRegistry()
	noop := func(...any) (any, error) { return nil, nil }

	if err := registry.Register("State", noop); !errors.Is(err, ErrFunctionReserved) {
		t.Fatalf("expected reserved name to be rejected, got %v", err)
	}
	if err := registry.Register("Total", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(" total", noop); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected case-insensitive duplicate to be rejected, got %v", err)
	}
	if _, err := registry.Call("TOTAL"); err != nil {
		t.Fatalf("expected case-insensitive call, got %v", err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected unknown function error, got %v", err)
	}
	if !registry.Has("total") || registry.Has("missing") {
		t.Fatalf("unexpected Has results")
	}
	var empty *FunctionRegistry
	if empty.Has("total") || empty.Unregister("total") || empty.Names() != nil {
		t.Fatalf("nil registry should be empty")
	}

	clone := registry.Clone()
	clone.MustRegister("extra", noop)
	if len(registry.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("clone should not share registrations: %v / %v", registry.Names(), clone.Names())
	}
	if !clone.Unregister("EXTRA") || clone.Has("extra") {
		t.Fatalf("expected extra to be removed from the clone")
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("expected MustRegister to panic on duplicates")
		}
	}()
	registry.MustRegister("total", noop)
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			cache := &fakeProgramCache{}
			evaluator := factory.new(cache, nil)
			for i := 0; i < 3; i++ {
				if _, err := evaluator.Compile("state.count > 1"); err != nil {
					t.Fatalf("compile %d: %v", i, err)
				}
			}
			if cache.hits != 2 || cache.misses != 1 {
				t.Fatalf("expected 2 hits and 1 miss, got %d/%d", cache.hits, cache.misses)
			}
		})
	}
}

func TestMemoryProgramCacheSharedAcrossEngines(t *testing.T) {
	cache := NewMemoryProgramCache()
	if _, err := NewExprEvaluator(WithProgramCache(cache)).Compile("state.count > 1"); err != nil {
		t.Fatalf("expr compile: %v", err)
	}
	first := NewCELEvaluator(WithProgramCache(cache))
	if _, err := first.Compile("state.count > 1"); err != nil {
		t.Fatalf("cel compile: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected engine-prefixed keys, got %d entries", cache.Len())
	}
	if _, ok := cache.Get("expr:state.count > 1"); !ok {
		t.Fatalf("expected expr program under prefixed key")
	}
	// CEL programs bind getter lookups to their evaluator.
	second := NewCELEvaluator(WithProgramCache(cache))
	if _, err := second.Compile("state.count > 1"); err != nil {
		t.Fatalf("cel compile: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct evaluators")
	}
	if cache.Len() != 3 {
		t.Fatalf("expected a separate CEL entry per evaluator, got %d entries", cache.Len())
	}
}

func TestRuleContextDefaults(t *testing.T) {
	ctx := RuleContext{}.withDefaults()
	if ctx.Now == nil || ctx.State == nil || ctx.RootState == nil || ctx.Args == nil {
		t.Fatalf("expected defaults to be filled: %+v", ctx)
	}
	if ctx.scopeLabel() != "root" {
		t.Fatalf("expected root scope label, got %q", ctx.scopeLabel())
	}
	if got := ctx.getter("missing"); got != nil {
		t.Fatalf("nil getters should yield nil, got %v", got)
	}
}

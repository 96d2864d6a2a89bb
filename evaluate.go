package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-store/pkg/reactive"
)

// RuleContext carries the inputs of one expression getter evaluation.
type RuleContext struct {
	State       map[string]any
	RootState   map[string]any
	Getters     Getters
	RootGetters Getters
	Scope       string
	Now         *time.Time
	Args        map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.State == nil {
		ctx.State = map[string]any{}
	}
	if ctx.RootState == nil {
		ctx.RootState = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope != "" {
		return ctx.Scope
	}
	return "root"
}

func (ctx RuleContext) getter(name string) any {
	return plainGetterValue(ctx.Getters, name)
}

func (ctx RuleContext) rootGetter(name string) any {
	return plainGetterValue(ctx.RootGetters, name)
}

// plainGetterValue converts observed objects to plain maps so expression
// engines can index into them.
func plainGetterValue(getters Getters, name string) any {
	if getters == nil {
		return nil
	}
	value := getters.Value(name)
	if obj, ok := value.(*reactive.Object); ok {
		return obj.ToMap()
	}
	return value
}

// ExpressionOption configures ExpressionGetter.
type ExpressionOption func(*expressionConfig)

type expressionConfig struct {
	logger      EvaluatorLogger
	diagnostics Logger
	scope       string
	args        map[string]any
	onError     func(error)
	clock       func() time.Time
}

// WithExpressionScope labels evaluations, usually with the module namespace.
func WithExpressionScope(scope string) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.scope = scope
	}
}

// WithExpressionArgs exposes args to the expression as `args`.
func WithExpressionArgs(args map[string]any) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.args = copyMap(args)
	}
}

// WithExpressionErrorHandler receives runtime evaluation errors. The getter
// yields nil whenever evaluation fails.
func WithExpressionErrorHandler(handler func(error)) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.onError = handler
	}
}

// WithExpressionDiagnostics reports runtime evaluation errors to logger.
func WithExpressionDiagnostics(logger Logger) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.diagnostics = logger
	}
}

// WithExpressionClock overrides the value bound to `now`.
func WithExpressionClock(clock func() time.Time) ExpressionOption {
	return func(cfg *expressionConfig) {
		cfg.clock = clock
	}
}

// ExpressionGetter compiles expression with evaluator and returns a Getter
// evaluating it against the module's local state. A nil evaluator selects
// the expr engine. Local state keys, `state`, `rootState`, `now`, `args` and
// the functions `getter(name)` and `rootGetter(name)` are in scope; the CEL
// engine reads local state through `state` only.
func ExpressionGetter(evaluator Evaluator, expression string, opts ...ExpressionOption) (Getter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: expression must not be empty", ErrInvalidModule)
	}
	if evaluator == nil {
		evaluator = NewExprEvaluator()
	}
	cfg := expressionConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, compileError(engine, expression, err)
	}
	usesRoot := strings.Contains(expression, "rootState")

	return func(state *reactive.Object, getters Getters, rootState *reactive.Object, rootGetters Getters) any {
		ctx := RuleContext{
			State:       state.ToMap(),
			Getters:     getters,
			RootGetters: rootGetters,
			Scope:       cfg.scope,
			Args:        cfg.args,
		}
		if usesRoot {
			ctx.RootState = rootState.ToMap()
		}
		if cfg.clock != nil {
			now := cfg.clock()
			ctx.Now = &now
		}
		ctx = ctx.withDefaults()

		start := time.Now()
		value, evalErr := rule.Evaluate(ctx)
		evalErr = evaluateError(engine, expression, ctx.scopeLabel(), evalErr)
		cfg.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     expression,
			Scope:    ctx.scopeLabel(),
			Duration: time.Since(start),
			Err:      evalErr,
		})
		if evalErr == nil {
			return value
		}
		if cfg.diagnostics != nil {
			cfg.diagnostics.LogDiagnostic(Diagnostic{
				Level:     LevelError,
				Code:      CodeEvaluationFailed,
				Namespace: cfg.scope,
				Message:   "expression getter failed",
				Err:       evalErr,
			})
		}
		if cfg.onError != nil {
			cfg.onError(evalErr)
		}
		return nil
	}, nil
}

// MustExpressionGetter is like ExpressionGetter but panics on compile errors.
// It suits package-level module definitions.
func MustExpressionGetter(evaluator Evaluator, expression string, opts ...ExpressionOption) Getter {
	getter, err := ExpressionGetter(evaluator, expression, opts...)
	if err != nil {
		panic(err)
	}
	return getter
}

package store

import (
	"fmt"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs getter expressions with expr-lang/expr. Local state
// keys are top-level identifiers; registry functions are callable by name
// and through call(name, args...).
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator returns the default expression engine.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *exprEvaluator) engine() string { return "expr" }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	partition := ""
	if e.registry != nil {
		partition = fmt.Sprintf("@%p", e.registry)
	}
	program, err := compileCached(e.engineConfig, "expr", partition, expression, e.compile)
	if err != nil {
		return nil, err
	}
	return &exprRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *exprEvaluator) compile(expression string) (*exprvm.Program, error) {
	options := []exprlang.Option{
		exprlang.Env(e.declarations()),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			name := name
			options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
				return e.call(name, args...)
			}))
		}
	}
	return exprlang.Compile(expression, options...)
}

// declarations types the reserved names. State keys stay undeclared and are
// resolved from the environment when the program runs.
func (e *exprEvaluator) declarations() map[string]any {
	decl := map[string]any{
		"state":      map[string]any{},
		"rootState":  map[string]any{},
		"now":        time.Time{},
		"args":       map[string]any{},
		"getter":     func(string) any { return nil },
		"rootGetter": func(string) any { return nil },
	}
	if e.registry != nil {
		decl["call"] = func(string, ...any) (any, error) { return nil, nil }
	}
	return decl
}

func (e *exprEvaluator) environment(ctx RuleContext) map[string]any {
	env := make(map[string]any, len(ctx.State)+7)
	for key, value := range ctx.State {
		env[key] = value
	}
	env["state"] = ctx.State
	env["rootState"] = ctx.RootState
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["getter"] = ctx.getter
	env["rootGetter"] = ctx.rootGetter
	if e.registry != nil {
		env["call"] = e.call
	}
	return env
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, evaluateError("expr", r.expression, ctx.scopeLabel(), err)
	}
	return result, nil
}

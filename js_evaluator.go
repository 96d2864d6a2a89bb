//go:build js_eval

package store

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs getter expressions with goja. Every evaluation gets a
// fresh runtime; compiled programs are shared.
type jsEvaluator struct {
	engineConfig
}

// NewJSEvaluator returns an evaluator for JavaScript expressions.
func NewJSEvaluator(opts ...EngineOption) Evaluator {
	return &jsEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *jsEvaluator) engine() string { return "js" }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := compileCached(e.engineConfig, "js", "", expression, func(source string) (*goja.Program, error) {
		return goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", source), false)
	})
	if err != nil {
		return nil, err
	}
	return &jsRule{evaluator: e, program: program, expression: expression}, nil
}

// bind exposes local state keys as globals, followed by the reserved names.
func (e *jsEvaluator) bind(vm *goja.Runtime, ctx RuleContext) error {
	for key, value := range ctx.State {
		if err := vm.Set(key, value); err != nil {
			return err
		}
	}
	bindings := map[string]any{
		"state":      ctx.State,
		"rootState":  ctx.RootState,
		"now":        ctx.timestamp(),
		"args":       ctx.Args,
		"getter":     ctx.getter,
		"rootGetter": ctx.rootGetter,
	}
	if e.registry != nil {
		bindings["call"] = e.call
	}
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm := goja.New()
	if err := r.evaluator.bind(vm, ctx); err != nil {
		return nil, evaluateError("js", r.expression, ctx.scopeLabel(), err)
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, evaluateError("js", r.expression, ctx.scopeLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}

package store

import (
	"fmt"
	"reflect"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs getter expressions with cel-go. Its environment is
// fixed, so local state is read through `state`. The getter and rootGetter
// bindings read the context of the innermost evaluation in progress; an
// evaluator must not be shared across goroutines.
type celEvaluator struct {
	engineConfig
	env    *celgo.Env
	frames []RuleContext
}

// NewCELEvaluator returns an evaluator for CEL expressions. Registry
// functions are reachable as call(name, [args]).
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *celEvaluator) engine() string { return "cel" }

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	program, err := compileCached(e.engineConfig, "cel", fmt.Sprintf("@%p", e), expression, e.compile)
	if err != nil {
		return nil, err
	}
	return &celRule{evaluator: e, program: program, expression: expression}, nil
}

func (e *celEvaluator) compile(expression string) (celgo.Program, error) {
	env, err := e.environment()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return env.Program(ast)
}

func (e *celEvaluator) environment() (*celgo.Env, error) {
	if e.env != nil {
		return e.env, nil
	}
	stringMap := celgo.MapType(celgo.StringType, celgo.DynType)
	opts := []celgo.EnvOption{
		celgo.Variable("state", stringMap),
		celgo.Variable("rootState", stringMap),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", stringMap),
		celgo.Function("getter",
			celgo.Overload("getter_string", []*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(e.getterBinding(false)))),
		celgo.Function("rootGetter",
			celgo.Overload("root_getter_string", []*celgo.Type{celgo.StringType}, celgo.DynType,
				celgo.UnaryBinding(e.getterBinding(true)))),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list", []*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)}, celgo.DynType,
				celgo.BinaryBinding(e.callBinding))))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	e.env = env
	return env, nil
}

func (e *celEvaluator) getterBinding(root bool) func(ref.Val) ref.Val {
	return func(name ref.Val) ref.Val {
		key, ok := name.Value().(string)
		if !ok {
			return types.NewErr("getter name must be a string")
		}
		if len(e.frames) == 0 {
			return types.NullValue
		}
		ctx := e.frames[len(e.frames)-1]
		if root {
			return nativeToCEL(ctx.rootGetter(key))
		}
		return nativeToCEL(ctx.getter(key))
	}
}

func (e *celEvaluator) callBinding(name, list ref.Val) ref.Val {
	fn, ok := name.Value().(string)
	if !ok {
		return types.NewErr("call name must be a string")
	}
	native, err := list.ConvertToNative(reflect.TypeOf([]any{}))
	if err != nil {
		return types.NewErr("call %s arguments: %v", fn, err)
	}
	result, err := e.call(fn, native.([]any)...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	return nativeToCEL(result)
}

func nativeToCEL(value any) ref.Val {
	if value == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(value)
}

type celRule struct {
	evaluator  *celEvaluator
	program    celgo.Program
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	e := r.evaluator
	e.frames = append(e.frames, ctx)
	defer func() { e.frames = e.frames[:len(e.frames)-1] }()

	out, _, err := r.program.Eval(map[string]any{
		"state":     ctx.State,
		"rootState": ctx.RootState,
		"now":       ctx.timestamp(),
		"args":      ctx.Args,
	})
	if err != nil {
		return nil, evaluateError("cel", r.expression, ctx.scopeLabel(), err)
	}
	return out.Value(), nil
}

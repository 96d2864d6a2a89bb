package store

import "fmt"

// Evaluator compiles and runs getter expressions for one engine.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable compiled expression.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EngineOption configures any of the bundled evaluators.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// WithProgramCache stores compiled programs in cache, keyed by engine and
// expression, so several evaluators can share one cache.
func WithProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes the functions in registry to expressions.
// The registry is cloned; later registrations are not seen.
func WithFunctionRegistry(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg engineConfig) call(name string, args ...any) (any, error) {
	return cfg.registry.Call(name, args...)
}

// compileCached returns the program cached for expression or compiles and
// caches it. Programs that capture evaluator state pass a non-empty
// partition so they are only reused by the evaluator that built them.
// Cached entries of another type are ignored.
func compileCached[P any](cfg engineConfig, engine, partition, expression string, compile func(string) (P, error)) (P, error) {
	var zero P
	if expression == "" {
		return zero, compileError(engine, expression, fmt.Errorf("expression must not be empty"))
	}
	key := engine + partition + ":" + expression
	if cfg.cache != nil {
		if cached, ok := cfg.cache.Get(key); ok {
			if program, ok := cached.(P); ok {
				return program, nil
			}
		}
	}
	program, err := compile(expression)
	if err != nil {
		return zero, compileError(engine, expression, err)
	}
	if cfg.cache != nil {
		cfg.cache.Set(key, program)
	}
	return program, nil
}

type engineNamer interface {
	engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(engineNamer); ok {
		return named.engine()
	}
	return "custom"
}

//go:build !js_eval

package store

import "fmt"

// NewJSEvaluator returns an evaluator that rejects every expression. Build
// with the js_eval tag to link the goja engine.
func NewJSEvaluator(...EngineOption) Evaluator {
	return unavailableEvaluator{name: "js"}
}

func jsEvaluatorAvailable() bool {
	return false
}

type unavailableEvaluator struct {
	name string
}

func (u unavailableEvaluator) engine() string { return u.name }

func (u unavailableEvaluator) Evaluate(RuleContext, string) (any, error) {
	return nil, u.err()
}

func (u unavailableEvaluator) Compile(string) (CompiledRule, error) {
	return nil, u.err()
}

func (u unavailableEvaluator) err() error {
	return fmt.Errorf("%w: %s engine requires the js_eval build tag", ErrNoEvaluator, u.name)
}

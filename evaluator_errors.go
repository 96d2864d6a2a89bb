package store

import (
	"errors"
	"fmt"
)

// Phases reported by EvaluationError.
const (
	PhaseCompile  = "compile"
	PhaseEvaluate = "evaluate"
)

// EvaluationError reports a getter expression that failed to compile or run.
type EvaluationError struct {
	Engine string
	Phase  string
	Expr   string
	Scope  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("store: %s %s failed", e.Engine, e.Phase)
	if e.Expr != "" {
		msg += fmt.Sprintf(" expr=%q", e.Expr)
	}
	if e.Scope != "" {
		msg += " scope=" + e.Scope
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func compileError(engine, expr string, err error) error {
	return annotate(PhaseCompile, engine, expr, "", err)
}

func evaluateError(engine, expr, scope string, err error) error {
	return annotate(PhaseEvaluate, engine, expr, scope, err)
}

// annotate wraps err in an EvaluationError. An existing EvaluationError in
// the chain is completed in place rather than wrapped twice.
func annotate(phase, engine, expr, scope string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Phase == "" {
			evalErr.Phase = phase
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Scope == "" {
			evalErr.Scope = scope
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Phase: phase, Expr: expr, Scope: scope, Err: err}
}

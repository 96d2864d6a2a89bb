package store

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DiagnosticLevel grades a diagnostic.
type DiagnosticLevel string

const (
	LevelWarn  DiagnosticLevel = "warn"
	LevelError DiagnosticLevel = "error"
)

// Diagnostic codes reported through Logger.
const (
	CodeUnknownMutation      = "unknown_mutation"
	CodeUnknownAction        = "unknown_action"
	CodeUnknownLocalMutation = "unknown_local_mutation"
	CodeUnknownLocalAction   = "unknown_local_action"
	CodeDuplicateGetter      = "duplicate_getter"
	CodeDuplicateNamespace   = "duplicate_namespace"
	CodeHotUpdateNewModule   = "hot_update_new_module"
	CodeStrictViolation      = "strict_violation"
	CodeActivityEmitFailed   = "activity_emit_failed"
	CodeEvaluationFailed     = "evaluation_failed"
	CodeInvalidRegistration  = "invalid_registration"
	CodeWatcherLoop          = "watcher_loop"
)

// Diagnostic is a non-fatal report about store usage or configuration.
type Diagnostic struct {
	Level     DiagnosticLevel
	Code      string
	Type      string
	Namespace string
	Path      []string
	Message   string
	Err       error
}

// Logger records store diagnostics.
type Logger interface {
	LogDiagnostic(Diagnostic)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Diagnostic)

// LogDiagnostic implements Logger.
func (f LoggerFunc) LogDiagnostic(d Diagnostic) {
	if f != nil {
		f(d)
	}
}

type noopLogger struct{}

func (noopLogger) LogDiagnostic(Diagnostic) {}

// NewSlogLogger forwards diagnostics to logger. A nil logger uses
// slog.Default.
func NewSlogLogger(logger *slog.Logger) Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) LogDiagnostic(d Diagnostic) {
	level := slog.LevelWarn
	if d.Level == LevelError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{slog.String("code", d.Code)}
	if d.Type != "" {
		attrs = append(attrs, slog.String("type", d.Type))
	}
	if d.Namespace != "" {
		attrs = append(attrs, slog.String("namespace", d.Namespace))
	}
	if len(d.Path) > 0 {
		attrs = append(attrs, slog.String("path", strings.Join(d.Path, "/")))
	}
	if d.Err != nil {
		attrs = append(attrs, slog.String("error", d.Err.Error()))
	}
	l.logger.LogAttrs(context.Background(), level, "store: "+d.Message, attrs...)
}

// EvaluatorLogEvent describes one run of an expression getter.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Scope    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records expression getter runs.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// NewSlogEvaluatorLogger logs successful runs at debug level and failed runs
// at warn level.
func NewSlogEvaluatorLogger(logger *slog.Logger) EvaluatorLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		attrs := []slog.Attr{
			slog.String("engine", event.Engine),
			slog.String("expr", event.Expr),
			slog.String("scope", event.Scope),
			slog.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			attrs = append(attrs, slog.String("error", event.Err.Error()))
			logger.LogAttrs(context.Background(), slog.LevelWarn, "store: expression getter failed", attrs...)
			return
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "store: expression getter evaluated", attrs...)
	})
}

// WithEvaluatorLogger reports every run of the expression getter to logger.
func WithEvaluatorLogger(logger EvaluatorLogger) ExpressionOption {
	return func(cfg *expressionConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

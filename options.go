package store

import "github.com/goliatone/go-store/pkg/activity"

// Option configures a Store at construction.
type Option func(*config)

// Plugin receives the store once it is fully installed. Plugins usually
// subscribe to mutations or actions.
type Plugin func(*Store)

type config struct {
	strict         bool
	plugins        []Plugin
	logger         Logger
	violation      func(error)
	activityHooks  activity.Hooks
	activityConfig activity.Config
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	return cfg
}

// WithStrict reports every state change made outside a committing
// transaction.
func WithStrict(strict bool) Option {
	return func(cfg *config) {
		cfg.strict = strict
	}
}

// WithPlugins appends plugins, applied in order after construction.
func WithPlugins(plugins ...Plugin) Option {
	return func(cfg *config) {
		for _, plugin := range plugins {
			if plugin != nil {
				cfg.plugins = append(cfg.plugins, plugin)
			}
		}
	}
}

// WithLogger sets the diagnostic logger. Diagnostics are discarded by
// default.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithViolationHandler receives strict-mode violations instead of the
// default handler, which panics with an *AssertionError.
func WithViolationHandler(handler func(error)) Option {
	return func(cfg *config) {
		cfg.violation = handler
	}
}

// WithActivityHooks emits an activity event for every committed mutation and
// every dispatched action. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks, activityConfig activity.Config) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
		cfg.activityConfig = activityConfig
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is used when neither the event nor Config names a channel.
const DefaultChannel = "store"

// Config controls activity emission for a store.
type Config struct {
	Enabled bool
	Channel string
	// ActorID and TenantID fill events that do not carry their own.
	ActorID  string
	TenantID string
	// Now stamps events with a zero OccurredAt. Defaults to time.Now.
	Now func() time.Time
}

// Emitter fans out events to hooks while applying Config defaults.
type Emitter struct {
	hooks    Hooks
	enabled  bool
	channel  string
	actorID  string
	tenantID string
	now      func() time.Time
}

// NewEmitter constructs an emitter. Nil hooks are dropped; an emitter with
// no hooks left is disabled.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	live := compactHooks(hooks)
	return &Emitter{
		hooks:    live,
		enabled:  cfg.Enabled && len(live) > 0,
		channel:  channel,
		actorID:  strings.TrimSpace(cfg.ActorID),
		tenantID: strings.TrimSpace(cfg.TenantID),
		now:      now,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit applies the defaults to event and forwards it to every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	return e.hooks.Notify(ctx, e.withDefaults(event))
}

func (e *Emitter) withDefaults(event Event) Event {
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = e.actorID
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.tenantID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return event
}

func compactHooks(hooks Hooks) Hooks {
	var live Hooks
	for _, hook := range hooks {
		if hook != nil {
			live = append(live, hook)
		}
	}
	return live
}

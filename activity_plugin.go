package store

import (
	"context"

	"github.com/goliatone/go-store/internal/clone"
	"github.com/goliatone/go-store/pkg/activity"
	"github.com/goliatone/go-store/pkg/reactive"
)

// ActivityPlugin emits an activity event for every committed mutation and
// every dispatched action. Payloads are deep-copied so later state changes
// do not leak into recorded events. Emission failures are reported as
// diagnostics.
func ActivityPlugin(hooks activity.Hooks, cfg activity.Config) Plugin {
	return func(s *Store) {
		emitter := activity.NewEmitter(hooks, cfg)
		if !emitter.Enabled() {
			return
		}
		storeID := s.ID().String()

		s.Subscribe(func(mutation MutationRecord, _ *reactive.Object) {
			event := activity.BuildMutationCommittedEvent(activity.StoreEventInput{
				StoreID:  storeID,
				Type:     mutation.Type,
				Payload:  snapshotPayload(mutation.Payload),
				Handlers: len(s.registry.mutations[mutation.Type]),
			})
			s.emitActivity(emitter, mutation.Type, event)
		})
		s.SubscribeAction(func(action ActionRecord, _ *reactive.Object) {
			event := activity.BuildActionDispatchedEvent(activity.StoreEventInput{
				StoreID:  storeID,
				Type:     action.Type,
				Payload:  snapshotPayload(action.Payload),
				Handlers: len(s.registry.actions[action.Type]),
			})
			s.emitActivity(emitter, action.Type, event)
		})
	}
}

func (s *Store) emitActivity(emitter *activity.Emitter, typ string, event activity.Event) {
	if err := emitter.Emit(context.Background(), event); err != nil {
		s.diagnose(Diagnostic{
			Level:   LevelWarn,
			Code:    CodeActivityEmitFailed,
			Type:    typ,
			Message: "activity hook failed",
			Err:     err,
		})
	}
}

func snapshotPayload(payload any) any {
	switch typed := payload.(type) {
	case nil:
		return nil
	case *reactive.Object:
		return typed.ToMap()
	case Message:
		return clone.Clone(map[string]any(typed))
	default:
		return clone.Clone(payload)
	}
}

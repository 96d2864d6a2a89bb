// Package usersink records store activity through a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-store/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook is an activity.ActivityHook writing one ActivityRecord per event.
//
// Store events carry the store ID as their object ID and the qualified
// mutation or action type in metadata; both are copied into Data under
// "store_id" and "mutation" or "action". Identifiers that are not UUIDs are
// kept in Data under "<field>_ref" and the record falls back to the hook's
// ActorID or TenantID.
type Hook struct {
	Sink     usertypes.ActivitySink
	ActorID  uuid.UUID
	TenantID uuid.UUID
	// Now stamps records whose event has no OccurredAt.
	Now func() time.Time
}

// Notify implements activity.ActivityHook. Events missing a verb, object
// type or object ID are dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.Record(event))
}

// Record maps a normalized event to an ActivityRecord.
func (h Hook) Record(event activity.Event) usertypes.ActivityRecord {
	data := recordData{values: cloneMap(event.Metadata)}

	record := usertypes.ActivityRecord{
		ActorID:    data.id("actor", event.ActorID, h.ActorID),
		UserID:     data.id("user", event.UserID, uuid.Nil),
		TenantID:   data.id("tenant", event.TenantID, h.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		OccurredAt: event.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = h.now()
	}

	if event.DefinitionCode != "" {
		data.set("definition_code", event.DefinitionCode)
	}
	if kind, ok := storeKind(event.ObjectType); ok {
		data.set("store_id", event.ObjectID)
		if typ, ok := event.Metadata["type"].(string); ok && typ != "" {
			data.set(kind, typ)
		}
	}
	if len(event.Recipients) > 0 {
		data.set("recipients", append([]string{}, event.Recipients...))
	}
	record.Data = data.values
	return record
}

func (h Hook) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// storeKind returns "mutation" or "action" for store object types.
func storeKind(objectType string) (string, bool) {
	kind, ok := strings.CutPrefix(objectType, "store.")
	if !ok || kind == "" {
		return "", false
	}
	return kind, true
}

type recordData struct {
	values map[string]any
}

func (d *recordData) set(key string, value any) {
	if d.values == nil {
		d.values = map[string]any{}
	}
	d.values[key] = value
}

func (d *recordData) id(field, raw string, fallback uuid.UUID) uuid.UUID {
	if raw == "" {
		return fallback
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		d.set(field+"_ref", raw)
		return fallback
	}
	return id
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

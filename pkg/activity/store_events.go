package activity

import (
	"strings"
	"time"
)

// StoreEventInput describes the common fields for store lifecycle events.
type StoreEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	StoreID        string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	// Type is the qualified mutation or action type.
	Type    string
	Payload any
	// Handlers is the number of handlers registered under Type.
	Handlers   int
	OccurredAt time.Time
}

// BuildMutationCommittedEvent constructs a normalized event for a commit.
func BuildMutationCommittedEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.mutation.committed", "store.mutation", input)
}

// BuildActionDispatchedEvent constructs a normalized event for a dispatch.
func BuildActionDispatchedEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.action.dispatched", "store.action", input)
}

func buildStoreEvent(verb, objectType string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if typ := strings.TrimSpace(input.Type); typ != "" {
		metadata = ensureMetadata(metadata)
		metadata["type"] = typ
		if i := strings.LastIndex(typ, "/"); i >= 0 {
			metadata["namespace"] = typ[:i+1]
		}
	}
	if input.Payload != nil {
		metadata = ensureMetadata(metadata)
		metadata["payload"] = input.Payload
	}
	if input.Handlers > 0 {
		metadata = ensureMetadata(metadata)
		metadata["handlers"] = input.Handlers
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.StoreID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Type)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

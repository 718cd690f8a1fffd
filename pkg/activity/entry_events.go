package activity

import (
	"strings"
	"time"
)

const (
	VerbCreated = "prefs.created"
	VerbUpdated = "prefs.updated"
	VerbDeleted = "prefs.deleted"

	// ObjectType is the object type of every entry event.
	ObjectType = "prefs.entry"
)

// EntryEventInput describes a single entry mutation.
type EntryEventInput struct {
	ActorID  string
	UserID   string
	TenantID string
	Channel  string
	// Key is the preference key and becomes the event object id.
	Key string
	// Store names the backing store or layer the write went to, if known.
	Store      string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildEntryCreatedEvent describes a key that went from absent to present.
func BuildEntryCreatedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbCreated, input)
}

// BuildEntryUpdatedEvent describes a present key whose value was replaced.
func BuildEntryUpdatedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbUpdated, input)
}

// BuildEntryDeletedEvent describes a key that went from present to absent.
func BuildEntryDeletedEvent(input EntryEventInput) Event {
	return buildEntryEvent(VerbDeleted, input)
}

func buildEntryEvent(verb string, input EntryEventInput) Event {
	metadata := cloneMap(input.Metadata)
	key := strings.TrimSpace(input.Key)
	if key != "" {
		metadata = ensureMetadata(metadata)
		metadata["key"] = key
	}
	if store := strings.TrimSpace(input.Store); store != "" {
		metadata = ensureMetadata(metadata)
		metadata["store"] = store
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectID := key
	if objectID == "" {
		objectID = ObjectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}

package activity

import (
	"strings"
	"time"
)

// Verbs emitted for store changes.
const (
	VerbUpdated     = "resource.updated"
	VerbTouched     = "resource.touched"
	VerbDestroyed   = "resource.destroyed"
	VerbInvalidated = "resource.invalidated"
	VerbReset       = "resource.reset"
)

// ResourceEventInput describes one store change.
type ResourceEventInput struct {
	Type       string
	ID         string
	BasePath   string
	Partial    string
	Status     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildResourceEvent constructs an activity event for verb. The object id is
// the resource id, falling back to the base path and then the type itself.
func BuildResourceEvent(verb string, input ResourceEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	set("base_path", input.BasePath)
	set("partial", input.Partial)
	set("status", input.Status)

	objectType := strings.TrimSpace(input.Type)
	objectID := strings.TrimSpace(input.ID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.BasePath)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

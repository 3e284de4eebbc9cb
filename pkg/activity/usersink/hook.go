package usersink

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-restcache/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards store change events to a go-users ActivitySink. Loading
// touches are skipped unless IncludeTouches is set.
type Hook struct {
	Sink           usertypes.ActivitySink
	IncludeTouches bool
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if normalized.Verb == activity.VerbTouched && !h.IncludeTouches {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     parseUUID(normalized.UserID),
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       resourceData(normalized),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}

	return h.Sink.Log(ctx, record)
}

// resourceData lifts the cache slot fields to the top level and keeps any
// other metadata under "metadata".
func resourceData(event activity.Event) map[string]any {
	data := map[string]any{"resource_type": event.ObjectType}
	rest := maps.Clone(event.Metadata)
	for _, key := range []string{"base_path", "partial", "status"} {
		if value, ok := rest[key].(string); ok && value != "" {
			data[key] = value
		}
		delete(rest, key)
	}
	if len(rest) > 0 {
		data["metadata"] = rest
	}
	return data
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}

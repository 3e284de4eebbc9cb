package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-restcache/pkg/activity"
	"github.com/goliatone/go-restcache/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsResourceEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildResourceEvent(activity.VerbUpdated, activity.ResourceEventInput{
		Type:       "projects",
		ID:         "42",
		BasePath:   "/projects/42",
		Partial:    "full",
		Status:     "SUCCESS",
		Metadata:   map[string]any{"source": "fetch"},
		OccurredAt: now,
	})
	event.ActorID = actorID.String()
	event.TenantID = tenantID.String()
	event.UserID = "not-a-uuid"
	event.Channel = "resources"

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.TenantID != tenantID {
		t.Fatalf("unexpected identities: %+v", record)
	}
	if record.UserID != uuid.Nil {
		t.Fatalf("expected invalid user id to map to nil uuid, got %s", record.UserID)
	}
	if record.Verb != activity.VerbUpdated || record.ObjectType != "projects" || record.ObjectID != "42" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "resources" {
		t.Fatalf("expected channel resources got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["resource_type"] != "projects" || record.Data["base_path"] != "/projects/42" ||
		record.Data["partial"] != "full" || record.Data["status"] != "SUCCESS" {
		t.Fatalf("expected cache slot fields, got %v", record.Data)
	}
	extra, _ := record.Data["metadata"].(map[string]any)
	if len(extra) != 1 || extra["source"] != "fetch" {
		t.Fatalf("expected remaining metadata nested, got %v", record.Data["metadata"])
	}
}

func TestHookNotifySkipsTouches(t *testing.T) {
	sink := &recordingSink{}
	touched := activity.BuildResourceEvent(activity.VerbTouched, activity.ResourceEventInput{Type: "projects", ID: "1"})

	if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), touched); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 0 {
		t.Fatalf("expected touches to be skipped, got %d", len(sink.records))
	}
	if err := (usersink.Hook{Sink: sink, IncludeTouches: true}).Notify(context.Background(), touched); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 || len(sink.records[0].Data) != 1 {
		t.Fatalf("expected touch with only the resource type, got %+v", sink.records)
	}
}

func TestHookNotifySkipsIncompleteEvents(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbDestroyed})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for incomplete event, got %d", len(sink.records))
	}
}

func TestHookNotifyWithoutSink(t *testing.T) {
	hook := usersink.Hook{}
	if err := hook.Notify(context.Background(), activity.Event{Verb: "x", ObjectType: "y", ObjectID: "z"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

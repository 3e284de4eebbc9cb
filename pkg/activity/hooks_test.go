package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " resource.updated ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " projects ",
		ObjectID:   " 42 ",
		Channel:    " resources ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "resource.updated" || got.ObjectType != "projects" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "resources" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{Verb: VerbUpdated}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events()))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	//nolint:staticcheck // nil context falls back to Background
	err := hooks.Notify(nil, Event{Verb: VerbUpdated, ObjectType: "projects", ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events()) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events()))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbTouched, ObjectType: "projects", ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events()) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, ActorID: "actor-1"})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(events))
	}
	if events[0].Channel != "resources" {
		t.Fatalf("expected default channel applied, got %q", events[0].Channel)
	}
	if events[0].ActorID != "actor-1" {
		t.Fatalf("expected default actor applied, got %q", events[0].ActorID)
	}
}

func TestEmitterNilIsDisabled(t *testing.T) {
	var emitter *Emitter
	if emitter.Enabled() {
		t.Fatalf("expected nil emitter to be disabled")
	}
	if err := emitter.Emit(context.Background(), Event{Verb: VerbUpdated}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbDestroyed,
		ObjectType: "projects",
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	events := capture.Events()
	if events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", events[0].Channel)
	}
	if !events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", events[0].OccurredAt)
	}
}

func TestBuildResourceEvent(t *testing.T) {
	byID := BuildResourceEvent(VerbUpdated, ResourceEventInput{
		Type:    "projects",
		ID:      "42",
		Partial: "full",
		Status:  "SUCCESS",
	})
	if byID.ObjectType != "projects" || byID.ObjectID != "42" {
		t.Fatalf("unexpected object: %+v", byID)
	}
	if byID.Metadata["partial"] != "full" || byID.Metadata["status"] != "SUCCESS" {
		t.Fatalf("unexpected metadata: %+v", byID.Metadata)
	}
	if _, ok := byID.Metadata["base_path"]; ok {
		t.Fatalf("expected empty base path omitted: %+v", byID.Metadata)
	}

	byPath := BuildResourceEvent(VerbInvalidated, ResourceEventInput{Type: "projects", BasePath: "/projects"})
	if byPath.ObjectID != "/projects" || byPath.Metadata["base_path"] != "/projects" {
		t.Fatalf("expected base path as object id: %+v", byPath)
	}

	byType := BuildResourceEvent(VerbReset, ResourceEventInput{Type: "projects"})
	if byType.ObjectID != "projects" {
		t.Fatalf("expected type fallback, got %q", byType.ObjectID)
	}
}

func TestCaptureHookVerbs(t *testing.T) {
	capture := &CaptureHook{}
	_ = capture.Notify(context.Background(), Event{Verb: VerbUpdated})
	_ = capture.Notify(context.Background(), Event{Verb: VerbDestroyed})
	verbs := capture.Verbs()
	if len(verbs) != 2 || verbs[0] != VerbUpdated || verbs[1] != VerbDestroyed {
		t.Fatalf("unexpected verbs: %v", verbs)
	}
}

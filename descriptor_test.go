package restcache

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/goliatone/go-restcache/cache"
	"github.com/goliatone/go-restcache/store"
)

type projectSchema struct {
	store  *store.Store
	root   *Accessor
	member *Node
}

func newProjectSchema(t *testing.T) projectSchema {
	t.Helper()
	s := store.New(store.Definition{Type: "projects"}, store.WithManualDelivery())
	projects, err := NewCollection("projects", Definition{}, s)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	member, err := NewResource("member", Definition{ParamID: "projectId"})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if err := projects.AddLeaf("", member); err != nil {
		t.Fatalf("add leaf: %v", err)
	}
	return projectSchema{store: s, root: Root(projects), member: member}
}

func mustResolve(t *testing.T, a *Accessor, action Action, items ...any) *Descriptor {
	t.Helper()
	d, err := a.Descriptor(action, items)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return d
}

func TestResolveCollection(t *testing.T) {
	schema := newProjectSchema(t)
	d := mustResolve(t, schema.root, ActionGet)

	if d.BasePath != "/projects" || d.Path != "/projects" {
		t.Fatalf("unexpected paths %q %q", d.BasePath, d.Path)
	}
	if d.ID != "" || d.Event != "/projects" {
		t.Fatalf("expected event keyed by base path, got id=%q event=%q", d.ID, d.Event)
	}
	if d.Classify != ClassifyCollection || d.Type != "projects" || d.Store != schema.store {
		t.Fatalf("unexpected descriptor %+v", d)
	}
	if d.Partial != cache.DefaultPartial || d.CacheStrategy != cache.StrategyReplace {
		t.Fatalf("unexpected defaults partial=%q strategy=%q", d.Partial, d.CacheStrategy)
	}
}

func TestResolveResourceID(t *testing.T) {
	schema := newProjectSchema(t)
	member := schema.root.MustGet("member").Params(map[string]any{"projectId": "42"})
	d := mustResolve(t, member, ActionGet)

	if d.BasePath != "/projects/42" {
		t.Fatalf("unexpected base path %q", d.BasePath)
	}
	if d.ID != "42" || d.Event != "42" {
		t.Fatalf("expected id 42, got id=%q event=%q", d.ID, d.Event)
	}
	if d.Classify != ClassifyResource {
		t.Fatalf("expected resource classification, got %q", d.Classify)
	}
	addr := d.Address()
	if addr.ID != "42" || addr.BasePath != "/projects/42" || addr.Partial != cache.DefaultPartial {
		t.Fatalf("unexpected address %+v", addr)
	}
}

func TestResolveNumericID(t *testing.T) {
	schema := newProjectSchema(t)
	d := mustResolve(t, schema.root.MustGet("member"), ActionGet, Parameters{"projectId": 7})
	if d.ID != "7" || d.BasePath != "/projects/7" {
		t.Fatalf("unexpected id %q path %q", d.ID, d.BasePath)
	}
}

func TestResolveIDFromLastPlaceholder(t *testing.T) {
	node, err := NewNode("task", Definition{URI: "projects/:projectId/tasks/:taskId"})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	d := mustResolve(t, Root(node), ActionGet, Parameters{"projectId": "1", "taskId": "9"})
	if d.BasePath != "/projects/1/tasks/9" || d.ID != "9" {
		t.Fatalf("unexpected path %q id %q", d.BasePath, d.ID)
	}
}

func TestResolveParentPlaceholderIsNotID(t *testing.T) {
	tasks, err := NewCollection("tasks", Definition{URI: "projects/:projectId/tasks"})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	d := mustResolve(t, Root(tasks), ActionGet, Parameters{"projectId": "42"})
	if d.BasePath != "/projects/42/tasks" || d.ID != "" || d.Event != d.BasePath {
		t.Fatalf("unexpected path %q id %q event %q", d.BasePath, d.ID, d.Event)
	}

	schema := newProjectSchema(t)
	comments, err := NewCollection("comments", Definition{})
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	if err := schema.member.AddLeaf("", comments); err != nil {
		t.Fatalf("add leaf: %v", err)
	}
	nested := schema.root.MustGet("member").MustGet("comments")
	d = mustResolve(t, nested, ActionGet, Parameters{"projectId": "42"})
	if d.BasePath != "/projects/42/comments" || d.ID != "" {
		t.Fatalf("unexpected path %q id %q", d.BasePath, d.ID)
	}
}

func TestResolveDefaultIDKey(t *testing.T) {
	node, err := NewNode("users", Definition{URI: "users"})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	d := mustResolve(t, Root(node), ActionGet, Parameters{"id": "u1"})
	if d.ID != "u1" || d.Event != "u1" {
		t.Fatalf("expected id from the id parameter, got %q", d.ID)
	}
}

func TestResolveParamAlias(t *testing.T) {
	node, err := NewNode("projects", map[string]any{
		"uri":      "orgs/:org/projects",
		"paramMap": map[string]any{"org": "organizationId"},
	})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	d := mustResolve(t, Root(node), ActionGet, Parameters{"organizationId": "acme"})
	if d.BasePath != "/orgs/acme/projects" {
		t.Fatalf("unexpected base path %q", d.BasePath)
	}
}

func TestResolveQueryString(t *testing.T) {
	schema := newProjectSchema(t)
	query := QueryParameters{
		"sort":   "name",
		"q":      "a b",
		"tags":   []any{"x", "y"},
		"filter": map[string]any{"done": true},
		"skip":   nil,
	}
	d := mustResolve(t, schema.root, ActionGet, query)

	want := "/projects?filter=%7B%22done%22%3Atrue%7D&q=a%20b&sort=name&tags[]=x&tags[]=y"
	if d.BasePath != want || d.Path != want {
		t.Fatalf("unexpected query path\n got: %q\nwant: %q", d.BasePath, want)
	}
	if d.Event != want {
		t.Fatalf("expected event to carry the query, got %q", d.Event)
	}
}

func TestResolveQueryOnlyOnGet(t *testing.T) {
	schema := newProjectSchema(t)
	d := mustResolve(t, schema.root, ActionDelete, QueryParameters{"force": true})
	if strings.Contains(d.Path, "?") {
		t.Fatalf("expected no query string on delete, got %q", d.Path)
	}
	if d.Query["force"] != true {
		t.Fatalf("expected query parameters to be kept on the descriptor")
	}
}

func TestResolveQueryNeedsPath(t *testing.T) {
	s := store.New(store.Definition{Type: "projects"}, store.WithManualDelivery())
	d, err := Resolve(ActionGet, Stack{s, QueryParameters{"q": "x"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.BasePath != "" || d.Path != "" || d.Event != "" {
		t.Fatalf("expected no query-only cache key, got base=%q path=%q event=%q", d.BasePath, d.Path, d.Event)
	}
}

func TestResolveModifierPath(t *testing.T) {
	schema := newProjectSchema(t)
	archive, err := NewModifier("/archive/")
	if err != nil {
		t.Fatalf("modifier: %v", err)
	}
	d := mustResolve(t, schema.root, ActionGet, archive)
	if d.BasePath != "/projects" || d.Path != "/projects/archive" {
		t.Fatalf("unexpected paths %q %q", d.BasePath, d.Path)
	}

	literal, err := NewPath("recent")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	d = mustResolve(t, schema.root, ActionGet, literal, archive)
	if d.BasePath != "/projects/recent" || d.Path != "/projects/recent/archive" {
		t.Fatalf("unexpected paths %q %q", d.BasePath, d.Path)
	}
}

func TestResolveHostname(t *testing.T) {
	schema := newProjectSchema(t)
	d, err := schema.root.Descriptor(ActionGet, nil, WithHostname("https://api.example.com/"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.BasePath != "https://api.example.com/projects" {
		t.Fatalf("unexpected base path %q", d.BasePath)
	}
}

func TestResolvePayloadMerge(t *testing.T) {
	schema := newProjectSchema(t)
	d := mustResolve(t, schema.root, ActionSave,
		Payload{"title": "draft", "meta": map[string]any{"a": 1}},
		map[string]any{"title": "final", "meta": map[string]any{"b": 2}},
	)
	if d.Payload["title"] != "final" {
		t.Fatalf("expected later payload to win, got %v", d.Payload["title"])
	}
	meta, _ := d.Payload["meta"].(map[string]any)
	if meta["a"] != 1 || meta["b"] != 2 {
		t.Fatalf("expected nested payloads to merge, got %v", meta)
	}
}

func TestResolveOptions(t *testing.T) {
	schema := newProjectSchema(t)
	opts, err := NewOptions(map[string]any{"cacheStrategy": "merge"})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	d := mustResolve(t, schema.root, ActionGet, opts)
	if d.CacheStrategy != cache.StrategyMerge || d.Address().CacheStrategy != cache.StrategyMerge {
		t.Fatalf("expected merge strategy, got %q", d.CacheStrategy)
	}
}

func TestResolvePartialAndFragments(t *testing.T) {
	s := store.New(store.Definition{Type: "projects"}, store.WithManualDelivery())
	node, err := NewNode("summary", s, Definition{URI: "projects", Partial: "summary", Fragments: []string{"card"}})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	d := mustResolve(t, Root(node), ActionGet)
	if d.Partial != "summary" || len(d.Fragments) != 1 || d.Fragments[0] != "card" {
		t.Fatalf("unexpected partial %q fragments %v", d.Partial, d.Fragments)
	}
}

func TestResolveStoreResetsScope(t *testing.T) {
	projects := store.New(store.Definition{Type: "projects"}, store.WithManualDelivery())
	users := store.New(store.Definition{Type: "users"}, store.WithManualDelivery())
	stack := Stack{
		projects,
		Definition{URI: "projects/:projectId", Partial: "summary", Classify: ClassifyResource},
		users,
		Definition{URI: "members"},
		Parameters{"projectId": "1"},
	}
	d, err := Resolve(ActionGet, stack)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.Store != users || d.Type != "users" {
		t.Fatalf("expected the last store to own the descriptor, got %q", d.Type)
	}
	if d.Partial != cache.DefaultPartial || d.Classify != ClassifyCollection {
		t.Fatalf("expected scope reset, got partial=%q classify=%q", d.Partial, d.Classify)
	}
	if d.BasePath != "/projects/1/members" || d.ID != "" {
		t.Fatalf("unexpected path %q id %q", d.BasePath, d.ID)
	}
}

func TestResolveUnresolvedParam(t *testing.T) {
	schema := newProjectSchema(t)
	_, err := schema.root.MustGet("member").Descriptor(ActionGet, []any{Parameters{"other": "x"}})
	if !errors.Is(err, ErrUnresolvedParam) {
		t.Fatalf("expected ErrUnresolvedParam, got %v", err)
	}
	var templateErr *TemplateError
	if !errors.As(err, &templateErr) {
		t.Fatalf("expected TemplateError, got %T", err)
	}
	if templateErr.Placeholder != ":projectId" {
		t.Fatalf("unexpected placeholder %q", templateErr.Placeholder)
	}
	if !strings.Contains(templateErr.Params, `"other":"x"`) {
		t.Fatalf("expected params dump, got %q", templateErr.Params)
	}
}

func TestResolveParamsDumpHandlesCycles(t *testing.T) {
	schema := newProjectSchema(t)
	params := map[string]any{}
	params["self"] = params
	_, err := schema.root.MustGet("member").Descriptor(ActionGet, []any{Parameters(params)})
	if err == nil || !strings.Contains(err.Error(), "[Circular]") {
		t.Fatalf("expected circular marker in error, got %v", err)
	}
}

func TestResolveMalformedStack(t *testing.T) {
	cases := []struct {
		name  string
		stack Stack
		index int
	}{
		{name: "nil entry", stack: Stack{Definition{URI: "a"}, nil}, index: 1},
		{name: "unsupported", stack: Stack{42}, index: 0},
		{name: "empty path", stack: Stack{Path{}}, index: 0},
		{name: "nil store", stack: Stack{(*store.Store)(nil)}, index: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(ActionGet, tc.stack)
			if !errors.Is(err, ErrMalformedStack) {
				t.Fatalf("expected ErrMalformedStack, got %v", err)
			}
			var stackErr *StackError
			if !errors.As(err, &stackErr) || stackErr.Index != tc.index {
				t.Fatalf("unexpected stack error %+v", stackErr)
			}
		})
	}
}

func TestDescriptorMethod(t *testing.T) {
	cases := []struct {
		action Action
		id     string
		want   string
	}{
		{ActionGet, "", http.MethodGet},
		{ActionSave, "", http.MethodPost},
		{ActionSave, "1", http.MethodPut},
		{ActionDelete, "1", http.MethodDelete},
		{ActionInspect, "", http.MethodGet},
	}
	for _, tc := range cases {
		d := &Descriptor{Action: tc.action, ID: tc.id}
		if got := d.Method(); got != tc.want {
			t.Fatalf("%s id=%q: expected %s, got %s", tc.action, tc.id, tc.want, got)
		}
	}
}

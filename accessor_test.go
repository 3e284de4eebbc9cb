package restcache

import (
	"errors"
	"slices"
	"testing"

	"github.com/goliatone/go-restcache/store"
)

func TestAccessorGetAndPath(t *testing.T) {
	schema := newProjectSchema(t)
	if _, ok := schema.root.Get("missing"); ok {
		t.Fatalf("expected missing leaf")
	}
	member, ok := schema.root.Get("member")
	if !ok {
		t.Fatalf("expected member leaf")
	}
	if member.Name() != "member" || member.Parent() != schema.root || member.Node() != schema.member {
		t.Fatalf("unexpected accessor %+v", member)
	}
	if got := member.Path(); !slices.Equal(got, []string{"member"}) {
		t.Fatalf("unexpected path %v", got)
	}
	if got := len(member.Stack()); got != 3 {
		t.Fatalf("expected store and two definitions on the stack, got %d", got)
	}
}

func TestAccessorWithDoesNotMutate(t *testing.T) {
	schema := newProjectSchema(t)
	before := len(schema.root.Stack())
	scoped := schema.root.With(QueryParameters{"page": 2})
	if len(schema.root.Stack()) != before {
		t.Fatalf("With must not change the receiver")
	}
	if len(scoped.Stack()) != before+1 {
		t.Fatalf("expected one extra entry, got %d", len(scoped.Stack()))
	}
}

func TestAccessorMustGetPanics(t *testing.T) {
	schema := newProjectSchema(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing leaf")
		}
	}()
	schema.root.MustGet("missing")
}

func TestAccessorLeafsKeepInsertionOrder(t *testing.T) {
	root, err := NewNamespace("api", "")
	if err != nil {
		t.Fatalf("namespace: %v", err)
	}
	for _, name := range []string{"users", "projects", "labels"} {
		child, err := NewCollection(name, Definition{})
		if err != nil {
			t.Fatalf("collection: %v", err)
		}
		if err := root.AddLeaf("", child); err != nil {
			t.Fatalf("add leaf: %v", err)
		}
	}
	got := Root(root).Leafs()
	if !slices.Equal(got, []string{"users", "projects", "labels"}) {
		t.Fatalf("unexpected leafs %v", got)
	}
	d := mustResolve(t, Root(root).MustGet("labels"), ActionGet)
	if d.BasePath != "/api/labels" {
		t.Fatalf("unexpected base path %q", d.BasePath)
	}
}

func TestDetachedLeafVisibility(t *testing.T) {
	schema := newProjectSchema(t)
	tasks, err := NewCollection("tasks", Definition{})
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	member := schema.root.MustGet("member")
	if err := member.AddDetachedLeaf("", tasks); err != nil {
		t.Fatalf("detached leaf: %v", err)
	}

	scoped := schema.root.MustGet("member").Params(map[string]any{"projectId": "1"})
	child, ok := scoped.Get("tasks")
	if !ok {
		t.Fatalf("expected tasks under the mounting path")
	}
	d := mustResolve(t, child, ActionGet)
	if d.BasePath != "/projects/1/tasks" {
		t.Fatalf("unexpected base path %q", d.BasePath)
	}

	archive := store.New(store.Definition{Type: "archive"}, store.WithManualDelivery())
	archived, err := NewCollection("archived", Definition{}, archive)
	if err != nil {
		t.Fatalf("archived: %v", err)
	}
	if err := archived.AddLeaf("member", schema.member); err != nil {
		t.Fatalf("add leaf: %v", err)
	}
	other := Root(archived).MustGet("member")
	if _, ok := other.Get("tasks"); ok {
		t.Fatalf("detached leaf must not be visible from another mount")
	}
	if slices.Contains(other.Leafs(), "tasks") {
		t.Fatalf("detached leaf listed from another mount")
	}
}

func TestMatchStackSuffix(t *testing.T) {
	a := &Definition{URI: "a"}
	b := &Definition{URI: "b"}
	c := &Definition{URI: "c"}
	cases := []struct {
		name      string
		recorded  Stack
		candidate Stack
		want      bool
	}{
		{"empty", Stack{}, Stack{a}, true},
		{"exact", Stack{a, b}, Stack{a, b}, true},
		{"suffix", Stack{b, c}, Stack{a, b, c}, true},
		{"prefix only", Stack{a, b}, Stack{a, b, c}, false},
		{"longer", Stack{a, b, c}, Stack{b, c}, false},
		{"equal values distinct pointers", Stack{&Definition{URI: "a"}}, Stack{a}, false},
		{"uncomparable", Stack{map[string]any{}}, Stack{map[string]any{}}, false},
	}
	for _, tc := range cases {
		if got := MatchStackSuffix(tc.recorded, tc.candidate); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestInspect(t *testing.T) {
	schema := newProjectSchema(t)
	descriptors, err := schema.root.Inspect()
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected two descriptors, got %d", len(descriptors))
	}
	if d := descriptors[""]; d.BasePath != "/projects" || d.Action != ActionInspect {
		t.Fatalf("unexpected root descriptor %+v", d)
	}
	member := descriptors["member"]
	if member.BasePath != "/projects/:projectId" || member.ID != "" {
		t.Fatalf("expected placeholder kept, got %q id %q", member.BasePath, member.ID)
	}
	if member.Classify != ClassifyResource {
		t.Fatalf("unexpected classification %q", member.Classify)
	}
}

func TestInspectDetectsCycles(t *testing.T) {
	node, err := NewCollection("loop", Definition{})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	if err := node.AddLeaf("again", node); err != nil {
		t.Fatalf("add leaf: %v", err)
	}
	if _, err := Root(node).Inspect(); !errors.Is(err, ErrCyclicSchema) {
		t.Fatalf("expected ErrCyclicSchema, got %v", err)
	}
}

func TestAddLeafErrors(t *testing.T) {
	parent, err := NewNode("parent", Definition{URI: "parent"})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	anonymous, err := NewNode("", Definition{URI: "x"})
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	if err := parent.AddLeaf("", anonymous); !errors.Is(err, ErrLeafName) {
		t.Fatalf("expected ErrLeafName, got %v", err)
	}
	if err := parent.AddLeaf("child", "nope"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := parent.AddLeaf("child", Root(anonymous)); err != nil {
		t.Fatalf("accessor leaf: %v", err)
	}
}

func TestNewNodeRejectsSubjects(t *testing.T) {
	if _, err := NewNode("bad", 42); !errors.Is(err, ErrMalformedStack) {
		t.Fatalf("expected ErrMalformedStack, got %v", err)
	}
	if _, err := NewNode("bad", map[string]any{"url": "x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	var def *Definition
	if _, err := NewNode("bad", def); !errors.Is(err, ErrMalformedStack) {
		t.Fatalf("expected ErrMalformedStack, got %v", err)
	}
}

package layering

import (
	"reflect"
	"testing"
)

func TestMergeRecordsCases(t *testing.T) {
	cases := []struct {
		name    string
		records []map[string]any
		expect  map[string]any
	}{
		{
			name:    "stronger scalar wins",
			records: []map[string]any{{"done": false}, {"done": true, "points": 5}},
			expect:  map[string]any{"done": false, "points": 5},
		},
		{
			name: "nested records merge key by key",
			records: []map[string]any{
				{"limits": map[string]any{"daily": 1}},
				{"limits": map[string]any{"daily": 9, "monthly": 30}},
			},
			expect: map[string]any{"limits": map[string]any{"daily": 1, "monthly": 30}},
		},
		{
			name:    "lists replace",
			records: []map[string]any{{"tags": []any{"x"}}, {"tags": []any{"y", "z"}}},
			expect:  map[string]any{"tags": []any{"x"}},
		},
		{
			name:    "record replaces scalar",
			records: []map[string]any{{"owner": map[string]any{"id": "u1"}}, {"owner": "u1"}},
			expect:  map[string]any{"owner": map[string]any{"id": "u1"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeRecords(tc.records...)
			if !reflect.DeepEqual(tc.expect, got) {
				t.Errorf("merged mismatch:\nwant: %#v\n got: %#v", tc.expect, got)
			}
		})
	}
}

func TestMergeRecords(t *testing.T) {
	strong := map[string]any{"title": "New", "meta": map[string]any{"a": 1}, "done": false}
	weak := map[string]any{"title": "Old", "meta": map[string]any{"b": 2}, "done": true, "owner": "u1"}

	got := MergeRecords(strong, nil, weak)
	expect := map[string]any{
		"title": "New",
		"meta":  map[string]any{"a": 1, "b": 2},
		"done":  false,
		"owner": "u1",
	}
	if !reflect.DeepEqual(expect, got) {
		t.Fatalf("merged mismatch:\nwant: %#v\n got: %#v", expect, got)
	}

	got["meta"].(map[string]any)["a"] = 99
	if strong["meta"].(map[string]any)["a"] != 1 {
		t.Fatalf("expected inputs untouched")
	}

	if empty := MergeRecords(); empty == nil || len(empty) != 0 {
		t.Fatalf("expected fresh empty map, got %#v", empty)
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := map[string]any{"list": []any{map[string]any{"id": 1}}}
	dst := Clone(src)
	dst["list"].([]any)[0].(map[string]any)["id"] = 2
	if src["list"].([]any)[0].(map[string]any)["id"] != 1 {
		t.Fatalf("expected clone to share no state")
	}

	var nilMap map[string]any
	if Clone(nilMap) != nil {
		t.Fatalf("expected nil clone of nil map")
	}
	if Clone[any](nil) != nil {
		t.Fatalf("expected nil clone of nil")
	}
}

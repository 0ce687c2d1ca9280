package audit

import (
	"reflect"
	"testing"
)

func TestDiff_SingleChangedKey(t *testing.T) {
	got := Diff(
		map[string]any{"a": 1, "b": 2},
		map[string]any{"a": 1, "b": 3},
	)
	if !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf(`want ["b"], got %v`, got)
	}
}

func TestDiff_Identical(t *testing.T) {
	got := Diff(map[string]any{"a": 1}, map[string]any{"a": 1})
	if len(got) != 0 {
		t.Errorf("want no changes, got %v", got)
	}
}

func TestDiff_KeyAdded(t *testing.T) {
	got := Diff(map[string]any{}, map[string]any{"x": "new"})
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf(`want ["x"], got %v`, got)
	}
}

// Nested objects must compare by structure, not by serialization order.
func TestDiff_NestedKeyOrderIrrelevant(t *testing.T) {
	oldSnap := map[string]any{
		"meta": map[string]any{"a": 1, "b": 2},
	}
	newSnap := map[string]any{
		"meta": map[string]any{"b": 2, "a": 1},
	}
	if got := Diff(oldSnap, newSnap); len(got) != 0 {
		t.Errorf("key order inside nested object reported as change: %v", got)
	}
}

func TestDiff_NestedValueChange(t *testing.T) {
	oldSnap := map[string]any{"meta": map[string]any{"a": 1}}
	newSnap := map[string]any{"meta": map[string]any{"a": 2}}
	if got := Diff(oldSnap, newSnap); !reflect.DeepEqual(got, []string{"meta"}) {
		t.Errorf(`want ["meta"], got %v`, got)
	}
}

func TestDiff_SortedOutput(t *testing.T) {
	got := Diff(
		map[string]any{"z": 1, "a": 1, "m": 1},
		map[string]any{"z": 2, "a": 2, "m": 2},
	)
	if !reflect.DeepEqual(got, []string{"a", "m", "z"}) {
		t.Errorf("want sorted keys, got %v", got)
	}
}

// Snapshots decoded from JSON carry json.Number; snapshots built in-process
// carry native ints. "1000" and 1000 must compare equal either way.
func TestDiff_NumberRepresentations(t *testing.T) {
	oldSnap, ok := ParseSnapshot(`{"fee": 1000}`)
	if !ok {
		t.Fatal("ParseSnapshot failed on valid JSON")
	}
	newSnap := map[string]any{"fee": 1000}
	if got := Diff(oldSnap, newSnap); len(got) != 0 {
		t.Errorf("1000 vs json.Number(1000) reported as change: %v", got)
	}
}

func TestParseSnapshot_Malformed(t *testing.T) {
	if _, ok := ParseSnapshot(`{"a": `); ok {
		t.Error("truncated JSON accepted")
	}
	if _, ok := ParseSnapshot(`not json at all`); ok {
		t.Error("garbage accepted")
	}
}

func TestParseSnapshot_EmptyAndNull(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		m, ok := ParseSnapshot(raw)
		if !ok {
			t.Errorf("ParseSnapshot(%q): want ok", raw)
		}
		if len(m) != 0 {
			t.Errorf("ParseSnapshot(%q): want empty map, got %v", raw, m)
		}
	}
}

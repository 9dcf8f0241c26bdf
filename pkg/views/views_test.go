package views

import (
	"reflect"
	"testing"
)

type content struct{ name string }

func TestExtract(t *testing.T) {
	view := &content{name: "chart"}
	payload := map[string]any{"id": "n1", "view": view, "data": map[string]any{}}

	stripped, got := Extract(payload)

	if got != view {
		t.Error("Extract should return the view object")
	}
	if _, ok := stripped["view"]; ok {
		t.Error("stripped payload should not contain view")
	}
	if _, ok := payload["view"]; !ok {
		t.Error("Extract must not modify the input payload")
	}
}

func TestExtract_NoView(t *testing.T) {
	payload := map[string]any{"id": "n1"}
	stripped, view := Extract(payload)
	if view != nil {
		t.Errorf("view = %v, want nil", view)
	}
	if !reflect.DeepEqual(stripped, payload) {
		t.Error("payload without view should pass through")
	}
}

func TestAssign_StableIndex(t *testing.T) {
	r := NewRegistry()
	a := &content{name: "a"}

	idx := r.Assign("n1", a)
	if idx != 0 {
		t.Errorf("first index = %d, want 0", idx)
	}
	// Re-assigning the same owner reuses the index.
	if again := r.Assign("n1", &content{name: "a2"}); again != idx {
		t.Errorf("re-assign index = %d, want %d", again, idx)
	}
	if next := r.Assign("n2", &content{name: "b"}); next != 1 {
		t.Errorf("second owner index = %d, want 1", next)
	}
}

func TestRelease_IndexNotReusedBeforeCompact(t *testing.T) {
	r := NewRegistry()
	r.Assign("n1", &content{name: "a"})
	r.Assign("n2", &content{name: "b"})

	r.Release("n1")

	if idx := r.Assign("n3", &content{name: "c"}); idx == 0 {
		t.Error("freed index must not be reused before compaction")
	}
	r.Release("missing") // no-op
}

func TestCompact(t *testing.T) {
	r := NewRegistry()
	a := &content{name: "a"}
	b := &content{name: "b"}
	c := &content{name: "c"}
	r.Assign("n0", a)
	r.Assign("n1", b)
	r.Assign("n2", c)

	r.Release("n1")
	remap := r.Compact([]string{"n0", "n2"})

	if !reflect.DeepEqual(remap, map[int]int{2: 1}) {
		t.Errorf("remap = %v, want {2:1}", remap)
	}
	if idx, _ := r.Index("n0"); idx != 0 {
		t.Errorf("n0 index = %d, want 0", idx)
	}
	if idx, _ := r.Index("n2"); idx != 1 {
		t.Errorf("n2 index = %d, want 1", idx)
	}

	objects := r.Objects()
	if len(objects) != 2 {
		t.Fatalf("objects length = %d, want 2", len(objects))
	}
	// Identity must survive compaction.
	if objects[0] != a || objects[1] != c {
		t.Error("surviving objects should keep identity after compaction")
	}
}

func TestCompact_DropsNonSurvivors(t *testing.T) {
	r := NewRegistry()
	r.Assign("n1", &content{})
	r.Assign("n2", &content{})

	// n1 removed from the graph without an explicit Release.
	remap := r.Compact([]string{"n2"})

	if !reflect.DeepEqual(remap, map[int]int{1: 0}) {
		t.Errorf("remap = %v, want {1:0}", remap)
	}
	if _, ok := r.Index("n1"); ok {
		t.Error("non-surviving owner should be dropped")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestObjects_ReplacedNotMutated(t *testing.T) {
	r := NewRegistry()
	r.Assign("n1", &content{})

	first := r.Objects()
	r.Assign("n2", &content{})
	second := r.Objects()

	if len(first) != 1 || len(second) != 2 {
		t.Errorf("lengths = %d/%d, want 1/2", len(first), len(second))
	}
}

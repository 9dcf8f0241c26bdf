package flow

import (
	"bytes"
	"strings"
	"testing"

	"github.com/flowpanel/flowpanel/pkg/editors"
	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/protocol"
	"github.com/flowpanel/flowpanel/pkg/spec"
)

func drain(t *testing.T, sess *protocol.Session) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	for {
		select {
		case data := <-sess.Outbound():
			msg, err := protocol.Decode(data)
			if err != nil {
				t.Fatalf("outbound message malformed: %v", err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func addNode(t *testing.T, f *Flow, id string, view any) spec.Node {
	t.Helper()
	n, err := f.AddNode(map[string]any{
		"id":       id,
		"position": map[string]any{"x": 0, "y": 0},
		"view":     view,
	})
	if err != nil {
		t.Fatalf("add node %s: %v", id, err)
	}
	return n
}

func TestAddNodeStripsViewContent(t *testing.T) {
	f := New(Options{})
	panel := "rich content"
	addNode(t, f, "n1", panel)

	n, _ := f.Node("n1")
	if n.View != nil {
		t.Error("view content stored on node")
	}
	idx, ok := f.ViewIndex("n1")
	if !ok || idx != 0 {
		t.Errorf("expected view index 0, got %d (%v)", idx, ok)
	}
	if views := f.Views(); len(views) != 1 || views[0] != panel {
		t.Errorf("view arena wrong: %v", views)
	}

	nodes, _ := f.Snapshot()
	if nodes[0]["view_idx"] != 0 {
		t.Errorf("snapshot missing view_idx: %v", nodes[0])
	}
	if _, leaked := nodes[0]["view"]; leaked {
		t.Errorf("view content leaked into snapshot: %v", nodes[0])
	}
}

func TestViewIndexCompaction(t *testing.T) {
	f := New(Options{})
	addNode(t, f, "a", "view-a")
	addNode(t, f, "b", "view-b")
	addNode(t, f, "c", "view-c")

	f.RemoveNode("b")

	// Indices stay contiguous from zero and each surviving node still
	// references its own content.
	if idx, _ := f.ViewIndex("a"); idx != 0 {
		t.Errorf("expected a at 0, got %d", idx)
	}
	idx, ok := f.ViewIndex("c")
	if !ok || idx != 1 {
		t.Errorf("expected c at 1, got %d (%v)", idx, ok)
	}
	views := f.Views()
	if len(views) != 2 || views[0] != "view-a" || views[1] != "view-c" {
		t.Errorf("arena not compacted: %v", views)
	}
}

func TestAddNodeDuplicateRollsBackView(t *testing.T) {
	f := New(Options{})
	addNode(t, f, "n1", "first")

	_, err := f.AddNode(map[string]any{"id": "n1", "view": "second"})
	if errors.GetCode(err) != errors.ErrCodeDuplicateID {
		t.Fatalf("expected DUPLICATE_ID, got %v", err)
	}
	views := f.Views()
	if len(views) != 1 || views[0] != "first" {
		t.Errorf("rejected insert disturbed existing view: %v", views)
	}
	if idx, ok := f.ViewIndex("n1"); !ok || idx != 0 {
		t.Errorf("existing view index lost: %d (%v)", idx, ok)
	}
}

func TestNodesWithoutViewsHaveNoIndex(t *testing.T) {
	f := New(Options{})
	addNode(t, f, "plain", nil)
	if _, ok := f.ViewIndex("plain"); ok {
		t.Error("node without view got an index")
	}
	nodes, _ := f.Snapshot()
	if _, present := nodes[0]["view_idx"]; present {
		t.Errorf("snapshot has spurious view_idx: %v", nodes[0])
	}
}

func TestRegisterNodeTypeFillsDefaults(t *testing.T) {
	f := New(Options{})
	_, err := f.RegisterNodeType(map[string]any{
		"type": "task",
		"schema": map[string]any{"properties": []any{
			map[string]any{"name": "status", "type": "string", "default": "todo"},
			map[string]any{"name": "owner", "type": "string"},
		}},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	n, err := f.AddNode(map[string]any{"id": "n1", "type": "task"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if n.Data["status"] != "todo" {
		t.Errorf("default not applied: %v", n.Data)
	}
	if _, present := n.Data["owner"]; present {
		t.Errorf("property without default materialized: %v", n.Data)
	}

	// Explicit values win over defaults.
	n2, err := f.AddNode(map[string]any{"id": "n2", "type": "task", "data": map[string]any{"status": "done"}})
	if err != nil {
		t.Fatal(err)
	}
	if n2.Data["status"] != "done" {
		t.Errorf("explicit value overridden: %v", n2.Data)
	}
}

func TestNodeEditorResolvesSchemaForm(t *testing.T) {
	f := New(Options{})
	if _, err := f.RegisterNodeType(map[string]any{
		"type": "task",
		"schema": map[string]any{"properties": []any{
			map[string]any{"name": "status", "type": "string", "default": "todo"},
		}},
	}); err != nil {
		t.Fatal(err)
	}
	addNodeTyped(t, f, "n1", "task")

	ed, err := f.NodeEditor("n1")
	if err != nil {
		t.Fatalf("editor failed: %v", err)
	}
	form, ok := ed.(*editors.SchemaForm)
	if !ok {
		t.Fatalf("expected schema form, got %T", ed)
	}
	if v, _ := form.Value("status"); v != "todo" {
		t.Errorf("form missing node data: %v", v)
	}
}

func addNodeTyped(t *testing.T, f *Flow, id, typ string) {
	t.Helper()
	if _, err := f.AddNode(map[string]any{"id": id, "type": typ}); err != nil {
		t.Fatal(err)
	}
}

func TestEditorPatchEmitsOnePatchMessage(t *testing.T) {
	f := New(Options{})
	if _, err := f.RegisterNodeType(map[string]any{
		"type": "task",
		"schema": map[string]any{"properties": []any{
			map[string]any{"name": "status", "type": "string", "default": "todo"},
		}},
	}); err != nil {
		t.Fatal(err)
	}
	addNodeTyped(t, f, "n1", "task")

	sess := f.Handler().Connect("s1")
	drain(t, sess)

	ed, err := f.NodeEditor("n1")
	if err != nil {
		t.Fatal(err)
	}
	ed.(*editors.SchemaForm).SetValue("status", "done")

	n, _ := f.Node("n1")
	if n.Data["status"] != "done" {
		t.Errorf("patch not applied: %v", n.Data)
	}
	msgs := drain(t, sess)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgPatchNodeData {
		t.Fatalf("expected exactly one patch message, got %+v", msgs)
	}
	if len(msgs[0].Patch) != 1 || msgs[0].Patch["status"] != "done" {
		t.Errorf("patch message carries more than the change: %v", msgs[0].Patch)
	}
}

func TestEditorClosedWhenNodeRemoved(t *testing.T) {
	f := New(Options{})
	addNode(t, f, "n1", nil)
	if _, err := f.NodeEditor("n1"); err != nil {
		t.Fatal(err)
	}

	f.RemoveNode("n1")
	if _, err := f.NodeEditor("n1"); errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND after removal, got %v", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	f := New(Options{})
	addNode(t, f, "a", nil)
	addNode(t, f, "b", nil)
	if _, err := f.AddEdge(map[string]any{"source": "a", "target": "b"}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := f.ExportJSON(&buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"source": "a"`) {
		t.Errorf("export missing edge: %s", buf.String())
	}

	g := New(Options{})
	if err := g.ImportJSON(&buf); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(g.Nodes()) != 2 || len(g.Edges()) != 1 {
		t.Errorf("import lost elements: %d nodes %d edges", len(g.Nodes()), len(g.Edges()))
	}
}

func TestFromGraphBroadcastsSingleSync(t *testing.T) {
	f := New(Options{})
	sess := f.Handler().Connect("s1")
	drain(t, sess)

	other := New(Options{})
	addNode(t, other, "a", nil)
	if err := f.FromGraph(other.ToGraph()); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	msgs := drain(t, sess)
	if len(msgs) != 1 || msgs[0].Type != protocol.MsgSync {
		t.Fatalf("expected one sync, got %+v", msgs)
	}
}

func TestOnCallbackFiresForServerMutation(t *testing.T) {
	f := New(Options{})
	var events []string
	f.On("node_added", func(payload map[string]any) {
		node, _ := payload["node"].(map[string]any)
		id, _ := node["id"].(string)
		events = append(events, id)
	})
	addNode(t, f, "n1", nil)
	if len(events) != 1 || events[0] != "n1" {
		t.Errorf("expected node_added callback for n1, got %v", events)
	}
}

func TestMoveNodeUnknownID(t *testing.T) {
	f := New(Options{})
	err := f.MoveNode("ghost", spec.Position{X: 1, Y: 1})
	if errors.GetCode(err) != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestSnapshotFillsEdgeHandlesFromPorts(t *testing.T) {
	f := New(Options{})
	if _, err := f.RegisterNodeType(map[string]any{
		"type":    "task",
		"inputs":  []any{"in", "ctl"},
		"outputs": []any{"out", "err"},
	}); err != nil {
		t.Fatal(err)
	}
	addNodeTyped(t, f, "a", "task")
	addNodeTyped(t, f, "b", "task")
	if _, err := f.AddEdge(map[string]any{"id": "a-b", "source": "a", "target": "b"}); err != nil {
		t.Fatal(err)
	}

	_, edges := f.Snapshot()
	if len(edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(edges))
	}
	if got := edges[0]["sourceHandle"]; got != "out" {
		t.Errorf("sourceHandle = %v, want first output port", got)
	}
	if got := edges[0]["targetHandle"]; got != "in" {
		t.Errorf("targetHandle = %v, want first input port", got)
	}

	// Resolution happens at read time; the stored edge stays untouched.
	e, ok := f.Edge("a-b")
	if !ok {
		t.Fatal("edge missing from store")
	}
	if e.SourceHandle != "" || e.TargetHandle != "" {
		t.Errorf("stored handles = %q/%q, want empty", e.SourceHandle, e.TargetHandle)
	}
}

func TestSnapshotKeepsExplicitEdgeHandles(t *testing.T) {
	f := New(Options{})
	if _, err := f.RegisterNodeType(map[string]any{
		"type":    "task",
		"outputs": []any{"out"},
		"inputs":  []any{"in"},
	}); err != nil {
		t.Fatal(err)
	}
	addNodeTyped(t, f, "a", "task")
	addNodeTyped(t, f, "b", "task")
	if _, err := f.AddEdge(map[string]any{
		"id": "a-b", "source": "a", "target": "b",
		"sourceHandle": "custom", "targetHandle": "side",
	}); err != nil {
		t.Fatal(err)
	}

	_, edges := f.Snapshot()
	if edges[0]["sourceHandle"] != "custom" || edges[0]["targetHandle"] != "side" {
		t.Errorf("explicit handles overwritten: %v/%v", edges[0]["sourceHandle"], edges[0]["targetHandle"])
	}
}

func TestSnapshotEdgeHandlesDefaultPortAndUntyped(t *testing.T) {
	f := New(Options{})
	// Registered type with unset ports resolves to the single default port.
	if _, err := f.RegisterNodeType(map[string]any{"type": "plain"}); err != nil {
		t.Fatal(err)
	}
	addNodeTyped(t, f, "a", "plain")
	addNodeTyped(t, f, "b", "plain")
	// Nodes without a registered type contribute nothing.
	addNode(t, f, "u1", nil)
	addNode(t, f, "u2", nil)
	if _, err := f.AddEdge(map[string]any{"id": "a-b", "source": "a", "target": "b"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.AddEdge(map[string]any{"id": "u1-u2", "source": "u1", "target": "u2"}); err != nil {
		t.Fatal(err)
	}

	_, edges := f.Snapshot()
	byID := make(map[string]map[string]any)
	for _, e := range edges {
		byID[e["id"].(string)] = e
	}
	if got := byID["a-b"]["sourceHandle"]; got != spec.DefaultPortName {
		t.Errorf("sourceHandle = %v, want default port", got)
	}
	if _, ok := byID["u1-u2"]["sourceHandle"]; ok {
		t.Error("untyped endpoint should leave sourceHandle unset")
	}
	if _, ok := byID["u1-u2"]["targetHandle"]; ok {
		t.Error("untyped endpoint should leave targetHandle unset")
	}
}

func TestAddNodeExtractsViewWithoutMutatingPayload(t *testing.T) {
	f := New(Options{})
	payload := map[string]any{"id": "n1", "view": "content"}
	n, err := f.AddNode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if n.View != nil {
		t.Error("stored node should not carry view content")
	}
	if _, ok := payload["view"]; !ok {
		t.Error("caller's payload map was mutated")
	}
	if idx, ok := f.ViewIndex("n1"); !ok || idx != 0 {
		t.Errorf("view index = %d/%v, want 0/true", idx, ok)
	}
	vs := f.Views()
	if len(vs) != 1 || vs[0] != "content" {
		t.Errorf("views = %v, want [content]", vs)
	}
}

package editors

import (
	"strings"
	"testing"

	"github.com/flowpanel/flowpanel/pkg/schema"
)

type stubEditor struct {
	name      string
	refreshed int
	closed    bool
}

func (s *stubEditor) Refresh(map[string]any) { s.refreshed++ }
func (s *stubEditor) Close()                 { s.closed = true }

func stubFactory(name string, made *[]*stubEditor) Factory {
	return func(Context) Editor {
		e := &stubEditor{name: name}
		*made = append(*made, e)
		return e
	}
}

func testSchema() *schema.Schema {
	return &schema.Schema{Properties: []schema.Property{
		{Name: "status", Label: "Status", Type: schema.TypeString, Default: "todo"},
		{Name: "retries", Label: "Retries", Type: schema.TypeInteger, Default: 0},
	}}
}

func TestResolveExplicitBeatsDefaultAndSchema(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.RegisterNodeEditor("task", stubFactory("explicit", &made))
	r.SetDefaultNodeEditor(stubFactory("default", &made))

	ed := r.Resolve(Context{ID: "n1", Type: "task", Kind: KindNode, Schema: testSchema()})
	stub, ok := ed.(*stubEditor)
	if !ok || stub.name != "explicit" {
		t.Fatalf("expected explicit editor, got %T", ed)
	}
}

func TestResolveDefaultBeatsSchemaFallback(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.SetDefaultNodeEditor(stubFactory("default", &made))

	ed := r.Resolve(Context{ID: "n1", Type: "task", Kind: KindNode, Schema: testSchema()})
	stub, ok := ed.(*stubEditor)
	if !ok || stub.name != "default" {
		t.Fatalf("expected default editor, got %T", ed)
	}
}

func TestResolveSchemaFormFallback(t *testing.T) {
	r := NewResolver()
	ed := r.Resolve(Context{ID: "n1", Type: "task", Kind: KindNode, Schema: testSchema()})
	if _, ok := ed.(*SchemaForm); !ok {
		t.Fatalf("expected schema form, got %T", ed)
	}
}

func TestResolveRawDataWithoutSchema(t *testing.T) {
	r := NewResolver()
	ed := r.Resolve(Context{ID: "n1", Type: "task", Kind: KindNode, Data: map[string]any{"k": "v"}})
	raw, ok := ed.(*RawData)
	if !ok {
		t.Fatalf("expected raw data view, got %T", ed)
	}
	if !strings.Contains(raw.Text(), `"k": "v"`) {
		t.Errorf("raw view missing data: %s", raw.Text())
	}
}

func TestResolveEdgeKindUsesEdgeRegistry(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.RegisterNodeEditor("flow", stubFactory("node", &made))
	r.RegisterEdgeEditor("flow", stubFactory("edge", &made))

	ed := r.Resolve(Context{ID: "e1", Type: "flow", Kind: KindEdge})
	stub, ok := ed.(*stubEditor)
	if !ok || stub.name != "edge" {
		t.Fatalf("expected edge editor, got %T", ed)
	}
}

func TestSchemaFormEmitsSingleKeyPatch(t *testing.T) {
	var patches []map[string]any
	ctx := Context{
		ID:     "n1",
		Kind:   KindNode,
		Data:   map[string]any{"status": "todo"},
		Schema: testSchema(),
		OnPatch: func(p map[string]any) {
			patches = append(patches, p)
		},
	}
	form := NewSchemaForm(ctx, nil)

	form.SetValue("status", "done")
	if len(patches) != 1 {
		t.Fatalf("expected exactly one patch, got %d", len(patches))
	}
	if len(patches[0]) != 1 || patches[0]["status"] != "done" {
		t.Errorf("unexpected patch: %v", patches[0])
	}

	// Refresh must never re-emit values.
	form.Refresh(map[string]any{"status": "blocked"})
	if len(patches) != 1 {
		t.Errorf("refresh emitted a patch: %v", patches)
	}
	if v, _ := form.Value("status"); v != "blocked" {
		t.Errorf("refresh did not update value: %v", v)
	}
}

func TestSchemaFormDefaultsFillMissingValues(t *testing.T) {
	ctx := Context{ID: "n1", Kind: KindNode, Schema: testSchema()}
	form := NewSchemaForm(ctx, nil)
	if v, _ := form.Value("retries"); v != 0 {
		t.Errorf("expected default 0, got %v", v)
	}
}

type recordingBuilder struct {
	props []string
}

func (b *recordingBuilder) BuildWidget(prop schema.Property, value any, set func(any)) any {
	b.props = append(b.props, prop.Name)
	return set
}

func TestSchemaFormWidgetsCommitThroughSetter(t *testing.T) {
	var patches []map[string]any
	builder := &recordingBuilder{}
	ctx := Context{
		ID:     "n1",
		Kind:   KindNode,
		Schema: testSchema(),
		OnPatch: func(p map[string]any) {
			patches = append(patches, p)
		},
	}
	form := NewSchemaForm(ctx, builder)

	if len(builder.props) != 2 || builder.props[0] != "status" || builder.props[1] != "retries" {
		t.Fatalf("expected one widget per property in order, got %v", builder.props)
	}
	widgets := form.Widgets()
	if len(widgets) != 2 {
		t.Fatalf("expected 2 widgets, got %d", len(widgets))
	}
	widgets[1].(func(any))(5)
	if len(patches) != 1 || patches[0]["retries"] != 5 {
		t.Errorf("widget commit not forwarded: %v", patches)
	}
}

func TestSchemaFormClosedDropsValues(t *testing.T) {
	var patches []map[string]any
	ctx := Context{
		ID:     "n1",
		Kind:   KindNode,
		Schema: testSchema(),
		OnPatch: func(p map[string]any) {
			patches = append(patches, p)
		},
	}
	form := NewSchemaForm(ctx, nil)
	form.Close()
	form.SetValue("status", "late")
	if len(patches) != 0 {
		t.Errorf("closed form emitted a patch: %v", patches)
	}
}

func TestManagerReusesEditorOnValueChange(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.RegisterNodeEditor("task", stubFactory("explicit", &made))
	m := NewManager(r)

	ctx := Context{ID: "n1", Type: "task", Kind: KindNode, Data: map[string]any{"status": "todo"}}
	first := m.Sync(ctx)

	ctx.Data = map[string]any{"status": "done"}
	second := m.Sync(ctx)
	if first != second {
		t.Fatal("value-only change rebuilt the editor")
	}
	if len(made) != 1 {
		t.Errorf("expected one construction, got %d", len(made))
	}
	if made[0].refreshed != 1 {
		t.Errorf("expected one refresh, got %d", made[0].refreshed)
	}
}

func TestManagerRebuildsOnShapeChange(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.SetDefaultNodeEditor(stubFactory("default", &made))
	m := NewManager(r)

	ctx := Context{ID: "n1", Type: "task", Kind: KindNode, Data: map[string]any{"status": "todo"}}
	m.Sync(ctx)

	// New data key changes the element's shape.
	ctx.Data = map[string]any{"status": "todo", "owner": "ame"}
	m.Sync(ctx)
	if len(made) != 2 {
		t.Fatalf("expected rebuild on key-set change, got %d constructions", len(made))
	}
	if !made[0].closed {
		t.Error("previous editor not closed on rebuild")
	}

	// Type change rebuilds too.
	ctx.Type = "milestone"
	m.Sync(ctx)
	if len(made) != 3 {
		t.Errorf("expected rebuild on type change, got %d constructions", len(made))
	}

	// Schema change rebuilds.
	ctx.Schema = testSchema()
	m.Sync(ctx)
	if len(made) != 4 {
		t.Errorf("expected rebuild on schema change, got %d constructions", len(made))
	}
}

func TestManagerRebuildsOnSchemaDefaultChange(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.SetDefaultNodeEditor(stubFactory("default", &made))
	m := NewManager(r)

	ctx := Context{ID: "n1", Type: "task", Kind: KindNode, Schema: testSchema()}
	first := m.Sync(ctx)

	// Same property names and types, but the status default changed.
	changed := testSchema()
	changed.Properties[0].Default = "done"
	ctx.Schema = changed
	second := m.Sync(ctx)

	if len(made) != 2 {
		t.Fatalf("expected rebuild on default-only schema change, got %d constructions", len(made))
	}
	if first == second {
		t.Error("editor instance reused despite changed schema default")
	}
	if !made[0].closed {
		t.Error("previous editor not closed on rebuild")
	}
}

func TestManagerRemoveClosesEditor(t *testing.T) {
	var made []*stubEditor
	r := NewResolver()
	r.SetDefaultNodeEditor(stubFactory("default", &made))
	m := NewManager(r)

	m.Sync(Context{ID: "n1", Type: "task", Kind: KindNode})
	m.Remove("n1")
	if !made[0].closed {
		t.Error("removed editor not closed")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty manager, got %d", m.Len())
	}
	m.Remove("n1") // no-op
}

func TestResolveFillsMode(t *testing.T) {
	r := NewResolver()
	var got Mode
	r.SetDefaultNodeEditor(func(ctx Context) Editor {
		got = ctx.Mode
		return &stubEditor{}
	})

	r.Resolve(Context{ID: "n1", Kind: KindNode})
	if got != ModeToolbar {
		t.Errorf("mode = %q, want toolbar default", got)
	}

	r.SetMode(ModeSide)
	r.Resolve(Context{ID: "n1", Kind: KindNode})
	if got != ModeSide {
		t.Errorf("mode = %q, want side after SetMode", got)
	}

	// An explicit mode on the context wins over the resolver setting.
	r.Resolve(Context{ID: "n1", Kind: KindNode, Mode: ModeNode})
	if got != ModeNode {
		t.Errorf("mode = %q, want explicit node mode", got)
	}
}

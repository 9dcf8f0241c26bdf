package editors

import (
	"encoding/json"
	"sync"

	"github.com/flowpanel/flowpanel/pkg/schema"
)

// SchemaForm is the generated-form fallback editor. It renders one widget
// per schema property through the configured WidgetBuilder and forwards
// each committed value as a single-key patch.
type SchemaForm struct {
	id      string
	kind    Kind
	schema  *schema.Schema
	onPatch PatchFunc

	mu      sync.Mutex
	values  map[string]any
	widgets []any
	closed  bool
}

// NewSchemaForm builds the form for ctx. The builder may be nil, in which
// case the form tracks values without constructing widgets.
func NewSchemaForm(ctx Context, builder WidgetBuilder) *SchemaForm {
	f := &SchemaForm{
		id:      ctx.ID,
		kind:    ctx.Kind,
		schema:  ctx.Schema.Clone(),
		onPatch: ctx.OnPatch,
		values:  make(map[string]any),
	}
	for _, prop := range f.schema.Properties {
		value := prop.Default
		if v, ok := ctx.Data[prop.Name]; ok {
			value = v
		}
		f.values[prop.Name] = value
		if builder != nil {
			name := prop.Name
			f.widgets = append(f.widgets, builder.BuildWidget(prop, value, func(v any) {
				f.SetValue(name, v)
			}))
		}
	}
	return f
}

// SetValue commits one property value, emitting a single-key patch to the
// owning element. Values set on a closed form are dropped.
func (f *SchemaForm) SetValue(name string, value any) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.values[name] = value
	onPatch := f.onPatch
	f.mu.Unlock()
	if onPatch != nil {
		onPatch(map[string]any{name: value})
	}
}

// Value returns the form's current value for a property.
func (f *SchemaForm) Value(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[name]
	return v, ok
}

// Widgets returns the constructed widgets in schema property order.
func (f *SchemaForm) Widgets() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.widgets...)
}

// Refresh pulls new element data into the form without re-emitting it.
func (f *SchemaForm) Refresh(data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, prop := range f.schema.Properties {
		if v, ok := data[prop.Name]; ok {
			f.values[prop.Name] = v
		}
	}
}

// Close detaches the form from its element.
func (f *SchemaForm) Close() {
	f.mu.Lock()
	f.closed = true
	f.onPatch = nil
	f.mu.Unlock()
}

// RawData is the last-resort editor shown when no schema is derivable for
// an element. It exposes the element's data as formatted JSON.
type RawData struct {
	id   string
	kind Kind

	mu   sync.Mutex
	data map[string]any
}

// NewRawData builds the raw structured-data view for ctx.
func NewRawData(ctx Context) *RawData {
	r := &RawData{id: ctx.ID, kind: ctx.Kind}
	r.Refresh(ctx.Data)
	return r
}

// Refresh replaces the displayed data.
func (r *RawData) Refresh(data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]any, len(data))
	for k, v := range data {
		copied[k] = v
	}
	r.data = copied
}

// Text renders the data as indented JSON.
func (r *RawData) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// Close implements Editor.
func (r *RawData) Close() {}

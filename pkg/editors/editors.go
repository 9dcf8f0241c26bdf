// Package editors resolves which editor view is shown for a selected
// graph element. Resolution walks a fixed priority chain: an editor
// registered for the element's exact type wins, then a default editor
// configured for all nodes or all edges, then a schema-driven fallback
// that renders a generated form when the element's normalized schema has
// properties and a raw data view otherwise.
//
// Editor instances receive the element's data, schema, id, type, and a
// patch callback. Invoking the callback applies exactly one partial data
// mutation to the owning element; it never triggers a full resync.
package editors

import (
	"github.com/flowpanel/flowpanel/pkg/schema"
)

// Kind distinguishes node editors from edge editors.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// Mode names where resolved editors are presented. The engine treats it
// as opaque configuration surfaced to the UI layer through Context.
type Mode string

const (
	// ModeToolbar shows the editor in a floating toolbar near the element.
	ModeToolbar Mode = "toolbar"

	// ModeNode embeds the editor inside the node body.
	ModeNode Mode = "node"

	// ModeSide shows the editor in a side panel.
	ModeSide Mode = "side"
)

// PatchFunc applies a partial data update to the editor's element.
type PatchFunc func(patch map[string]any)

// Context carries everything a factory needs to build an editor view.
type Context struct {
	ID      string
	Type    string
	Kind    Kind
	Mode    Mode
	Data    map[string]any
	Schema  *schema.Schema
	OnPatch PatchFunc
}

// Editor is a resolved editor view bound to one element.
type Editor interface {
	// Refresh pushes the element's current data into the view. It is
	// called on data-value changes that do not change the editor's shape.
	Refresh(data map[string]any)

	// Close releases the view when its element is removed or replaced.
	Close()
}

// Factory builds an editor view for an element.
type Factory func(ctx Context) Editor

// WidgetBuilder is the widget-construction boundary the generated form
// calls once per schema property. Implementations belong to the UI layer;
// a nil builder yields a form that records values without rendering.
type WidgetBuilder interface {
	BuildWidget(prop schema.Property, value any, set func(any)) any
}

// Resolver picks the editor factory for an element.
type Resolver struct {
	nodeEditors map[string]Factory
	edgeEditors map[string]Factory
	defaultNode Factory
	defaultEdge Factory
	widgets     WidgetBuilder
	mode        Mode
}

// NewResolver creates an empty resolver. With nothing registered every
// element resolves to the schema-driven fallback.
func NewResolver() *Resolver {
	return &Resolver{
		nodeEditors: make(map[string]Factory),
		edgeEditors: make(map[string]Factory),
		mode:        ModeToolbar,
	}
}

// SetMode configures where resolved editors are presented.
func (r *Resolver) SetMode(m Mode) { r.mode = m }

// Mode reports the configured presentation mode.
func (r *Resolver) Mode() Mode { return r.mode }

// RegisterNodeEditor binds a factory to a node type, replacing any
// previous registration for that type.
func (r *Resolver) RegisterNodeEditor(nodeType string, f Factory) {
	r.nodeEditors[nodeType] = f
}

// RegisterEdgeEditor binds a factory to an edge type.
func (r *Resolver) RegisterEdgeEditor(edgeType string, f Factory) {
	r.edgeEditors[edgeType] = f
}

// SetDefaultNodeEditor configures the editor used for node types without
// an explicit registration.
func (r *Resolver) SetDefaultNodeEditor(f Factory) { r.defaultNode = f }

// SetDefaultEdgeEditor configures the editor used for edge types without
// an explicit registration.
func (r *Resolver) SetDefaultEdgeEditor(f Factory) { r.defaultEdge = f }

// SetWidgetBuilder configures the widget boundary used by generated forms.
func (r *Resolver) SetWidgetBuilder(b WidgetBuilder) { r.widgets = b }

// Resolve builds the editor for the element described by ctx. An explicit
// registration for the element's type takes priority over the default
// editor even when the type also carries a schema.
func (r *Resolver) Resolve(ctx Context) Editor {
	if ctx.Mode == "" {
		ctx.Mode = r.mode
	}
	if f := r.factoryFor(ctx); f != nil {
		return f(ctx)
	}
	if ctx.Schema.HasProperties() {
		return NewSchemaForm(ctx, r.widgets)
	}
	return NewRawData(ctx)
}

func (r *Resolver) factoryFor(ctx Context) Factory {
	switch ctx.Kind {
	case KindEdge:
		if f, ok := r.edgeEditors[ctx.Type]; ok {
			return f
		}
		return r.defaultEdge
	default:
		if f, ok := r.nodeEditors[ctx.Type]; ok {
			return f
		}
		return r.defaultNode
	}
}

package flow

import (
	"github.com/flowpanel/flowpanel/pkg/editors"
	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/schema"
	"github.com/flowpanel/flowpanel/pkg/spec"
)

// =============================================================================
// Type Registration
// =============================================================================

// RegisterNodeType registers a node type given as a spec.NodeType or a
// plain map. The type's schema is normalized on the way in; registering
// a type again replaces the previous definition and re-resolves any open
// editors for elements of that type.
func (f *Flow) RegisterNodeType(v any) (spec.NodeType, error) {
	nt, err := spec.CoerceNodeType(v)
	if err != nil {
		return spec.NodeType{}, err
	}
	f.mu.Lock()
	f.nodeTypes[nt.Type] = nt
	f.mu.Unlock()
	f.refreshEditorsOfType(nt.Type, editors.KindNode)
	return nt, nil
}

// RegisterEdgeType registers an edge type given as a spec.EdgeType or a
// plain map.
func (f *Flow) RegisterEdgeType(v any) (spec.EdgeType, error) {
	et, err := spec.CoerceEdgeType(v)
	if err != nil {
		return spec.EdgeType{}, err
	}
	f.mu.Lock()
	f.edgeTypes[et.Type] = et
	f.mu.Unlock()
	f.refreshEditorsOfType(et.Type, editors.KindEdge)
	return et, nil
}

// NodeType returns a registered node type.
func (f *Flow) NodeType(name string) (spec.NodeType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	nt, ok := f.nodeTypes[name]
	return nt, ok
}

// EdgeType returns a registered edge type.
func (f *Flow) EdgeType(name string) (spec.EdgeType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	et, ok := f.edgeTypes[name]
	return et, ok
}

// NodeTypes returns the registered node types keyed by name.
func (f *Flow) NodeTypes() map[string]spec.NodeType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]spec.NodeType, len(f.nodeTypes))
	for k, v := range f.nodeTypes {
		out[k] = v
	}
	return out
}

// nodeSchema returns the normalized schema registered for a node type.
func (f *Flow) nodeSchema(nodeType string) *schema.Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nt, ok := f.nodeTypes[nodeType]; ok {
		return nt.Schema
	}
	return nil
}

func (f *Flow) edgeSchema(edgeType string) *schema.Schema {
	f.mu.Lock()
	defer f.mu.Unlock()
	if et, ok := f.edgeTypes[edgeType]; ok {
		return et.Schema
	}
	return nil
}

// applyTypeDefaults fills data keys missing from the node with the
// defaults declared by its registered type schema.
func (f *Flow) applyTypeDefaults(n *spec.Node) {
	sch := f.nodeSchema(n.Type)
	if !sch.HasProperties() {
		return
	}
	if n.Data == nil {
		n.Data = make(map[string]any)
	}
	for _, prop := range sch.Properties {
		if _, ok := n.Data[prop.Name]; !ok && prop.Default != nil {
			n.Data[prop.Name] = prop.Default
		}
	}
}

// =============================================================================
// Editors
// =============================================================================

// NodeEditor resolves (or refreshes) the editor for a node and returns
// it. The editor's patch callback applies exactly one partial data
// mutation to the node.
func (f *Flow) NodeEditor(id string) (editors.Editor, error) {
	n, ok := f.store.Node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "node %q does not exist", id)
	}
	return f.editors.Sync(f.nodeEditorContext(n)), nil
}

// EdgeEditor resolves (or refreshes) the editor for an edge.
func (f *Flow) EdgeEditor(id string) (editors.Editor, error) {
	e, ok := f.store.Edge(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "edge %q does not exist", id)
	}
	return f.editors.Sync(f.edgeEditorContext(e)), nil
}

func (f *Flow) nodeEditorContext(n spec.Node) editors.Context {
	id := n.ID
	return editors.Context{
		ID:     id,
		Type:   n.Type,
		Kind:   editors.KindNode,
		Data:   n.Data,
		Schema: f.nodeSchema(n.Type),
		OnPatch: func(patch map[string]any) {
			if err := f.PatchNodeData(id, patch); err != nil {
				f.logger.Warn("editor patch dropped", "node", id, "err", err)
			}
		},
	}
}

func (f *Flow) edgeEditorContext(e spec.Edge) editors.Context {
	id := e.ID
	return editors.Context{
		ID:     id,
		Type:   e.Type,
		Kind:   editors.KindEdge,
		Data:   e.Data,
		Schema: f.edgeSchema(e.Type),
		OnPatch: func(patch map[string]any) {
			if err := f.PatchEdgeData(id, patch); err != nil {
				f.logger.Warn("editor patch dropped", "edge", id, "err", err)
			}
		},
	}
}

// refreshNodeEditor re-syncs a node's open editor after a data change.
// Sync rebuilds the editor only when the data key set changed.
func (f *Flow) refreshNodeEditor(id string) {
	if _, open := f.editors.Editor(id); !open {
		return
	}
	if n, ok := f.store.Node(id); ok {
		f.editors.Sync(f.nodeEditorContext(n))
	}
}

func (f *Flow) refreshEdgeEditor(id string) {
	if _, open := f.editors.Editor(id); !open {
		return
	}
	if e, ok := f.store.Edge(id); ok {
		f.editors.Sync(f.edgeEditorContext(e))
	}
}

// refreshEditorsOfType re-resolves open editors for elements of a type
// whose definition just changed.
func (f *Flow) refreshEditorsOfType(typeName string, kind editors.Kind) {
	switch kind {
	case editors.KindEdge:
		for _, e := range f.store.Edges() {
			if e.Type != typeName {
				continue
			}
			if _, open := f.editors.Editor(e.ID); open {
				f.editors.Sync(f.edgeEditorContext(e))
			}
		}
	default:
		for _, n := range f.store.Nodes() {
			if n.Type != typeName {
				continue
			}
			if _, open := f.editors.Editor(n.ID); open {
				f.editors.Sync(f.nodeEditorContext(n))
			}
		}
	}
}

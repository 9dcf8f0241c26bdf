package spec

import (
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/flowpanel/flowpanel/pkg/errors"
)

// Edge is the canonical representation of a directed connection between two
// nodes. Source and Target are node ids and must reference existing nodes
// when the edge is added to a store.
//
// SourceHandle and TargetHandle name ports on the endpoint nodes. Both are
// optional; an empty handle resolves to the node's first port at read time,
// so a later change to a node type's port list is picked up without
// rewriting stored edges.
type Edge struct {
	ID           string
	Source       string
	Target       string
	SourceHandle string
	TargetHandle string
	Label        string
	Type         string
	Data         map[string]any
	Selected     bool

	Style     map[string]any
	MarkerEnd map[string]any

	View any
}

// NewEdge constructs an edge between two nodes, deriving an id when none is
// given, and validates it.
func NewEdge(id, source, target string) (Edge, error) {
	e := Edge{ID: id, Source: source, Target: target}
	e.ApplyDefaults()
	if err := e.Validate(); err != nil {
		return Edge{}, err
	}
	return e, nil
}

// DeriveEdgeID generates a unique edge id from the endpoints. The random
// suffix keeps parallel edges between the same pair distinct.
func DeriveEdgeID(source, target string) string {
	return fmt.Sprintf("%s->%s-%s", source, target, uuid.NewString()[:8])
}

// ApplyDefaults derives a missing id and initializes the data map. Defaults
// require Source and Target to be set; Validate reports them when absent.
func (e *Edge) ApplyDefaults() {
	if e.ID == "" && e.Source != "" && e.Target != "" {
		e.ID = DeriveEdgeID(e.Source, e.Target)
	}
	if e.Data == nil {
		e.Data = map[string]any{}
	}
}

// Validate checks required fields.
func (e Edge) Validate() error {
	if e.Source == "" {
		return errors.New(errors.ErrCodeValidation, "edge: missing required field %q", "source")
	}
	if e.Target == "" {
		return errors.New(errors.ErrCodeValidation, "edge: missing required field %q", "target")
	}
	if e.ID == "" {
		return errors.New(errors.ErrCodeValidation, "edge: missing required field %q", "id")
	}
	return nil
}

// ToMap converts the edge to its canonical plain mapping, excluding View.
func (e Edge) ToMap() map[string]any {
	out := map[string]any{
		"id":       e.ID,
		"source":   e.Source,
		"target":   e.Target,
		"data":     maps.Clone(orEmpty(e.Data)),
		"selected": e.Selected,
	}
	if e.SourceHandle != "" {
		out["sourceHandle"] = e.SourceHandle
	}
	if e.TargetHandle != "" {
		out["targetHandle"] = e.TargetHandle
	}
	if e.Label != "" {
		out["label"] = e.Label
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	if e.Style != nil {
		out["style"] = maps.Clone(e.Style)
	}
	if e.MarkerEnd != nil {
		out["markerEnd"] = maps.Clone(e.MarkerEnd)
	}
	return out
}

// EdgeFromMap parses a plain mapping into an Edge.
func EdgeFromMap(m map[string]any) (Edge, error) {
	e := Edge{
		ID:           asString(m["id"]),
		Source:       asString(m["source"]),
		Target:       asString(m["target"]),
		SourceHandle: asString(m["sourceHandle"]),
		TargetHandle: asString(m["targetHandle"]),
		Label:        asString(m["label"]),
		Type:         asString(m["type"]),
		Data:         asMap(m["data"]),
		Selected:     asBool(m["selected"], false),
		View:         m["view"],
	}
	if style := asMap(m["style"]); len(style) > 0 {
		e.Style = style
	}
	if marker := asMap(m["markerEnd"]); len(marker) > 0 {
		e.MarkerEnd = marker
	}
	e.ApplyDefaults()
	if err := e.Validate(); err != nil {
		return Edge{}, err
	}
	return e, nil
}

// CoerceEdge accepts an Edge, *Edge, or plain map and returns the canonical
// edge with defaults applied.
func CoerceEdge(v any) (Edge, error) {
	switch edge := v.(type) {
	case Edge:
		edge.ApplyDefaults()
		return edge, edge.Validate()
	case *Edge:
		if edge == nil {
			return Edge{}, errors.New(errors.ErrCodeValidation, "edge: nil spec")
		}
		e := *edge
		e.ApplyDefaults()
		return e, e.Validate()
	case map[string]any:
		return EdgeFromMap(edge)
	default:
		return Edge{}, errors.New(errors.ErrCodeValidation, "edge: unsupported spec type %T", v)
	}
}

// Touches reports whether the edge references the node as either endpoint.
func (e Edge) Touches(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Clone returns a copy with independent map fields.
func (e Edge) Clone() Edge {
	out := e
	out.Data = maps.Clone(orEmpty(e.Data))
	if e.Style != nil {
		out.Style = maps.Clone(e.Style)
	}
	if e.MarkerEnd != nil {
		out.MarkerEnd = maps.Clone(e.MarkerEnd)
	}
	return out
}

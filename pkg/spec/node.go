package spec

import (
	"maps"

	"github.com/flowpanel/flowpanel/pkg/errors"
)

// DefaultNodeType is assigned to nodes constructed without an explicit type.
const DefaultNodeType = "panel"

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is the canonical representation of a graph node.
//
// Data is the open payload mapping; Label lives top-level and is never part
// of Data. View is an optional reference to an embeddable content object and
// is never serialized directly - the view registry replaces it with an index
// in the wire payload.
type Node struct {
	ID       string
	Type     string
	Label    string
	Position Position
	Data     map[string]any

	Selected    bool
	Draggable   bool
	Connectable bool
	Deletable   bool

	Style     map[string]any
	ClassName string

	// View holds embeddable rich content. Excluded from ToMap/FromMap.
	View any
}

// NewNode constructs a node with defaults applied and validates it. The
// interaction flags start enabled; construct a Node literal to opt out.
func NewNode(id string) (Node, error) {
	n := Node{ID: id, Draggable: true, Connectable: true, Deletable: true}
	n.ApplyDefaults()
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// ApplyDefaults fills the built-in type, an empty data map, and the
// interaction flags, which default to enabled.
func (n *Node) ApplyDefaults() {
	if n.Type == "" {
		n.Type = DefaultNodeType
	}
	if n.Data == nil {
		n.Data = map[string]any{}
	}
}

// Validate checks required fields.
func (n Node) Validate() error {
	if n.ID == "" {
		return errors.New(errors.ErrCodeValidation, "node: missing required field %q", "id")
	}
	return nil
}

// ToMap converts the node to its canonical plain mapping, excluding View.
func (n Node) ToMap() map[string]any {
	out := map[string]any{
		"id":          n.ID,
		"type":        n.Type,
		"position":    map[string]any{"x": n.Position.X, "y": n.Position.Y},
		"data":        maps.Clone(orEmpty(n.Data)),
		"selected":    n.Selected,
		"draggable":   n.Draggable,
		"connectable": n.Connectable,
		"deletable":   n.Deletable,
	}
	if n.Label != "" {
		out["label"] = n.Label
	}
	if n.Style != nil {
		out["style"] = maps.Clone(n.Style)
	}
	if n.ClassName != "" {
		out["className"] = n.ClassName
	}
	return out
}

// NodeFromMap parses a plain mapping into a Node. Interaction flags missing
// from the map default to enabled, matching ApplyDefaults. A "view" entry is
// lifted into the View field so callers can attach content inline.
func NodeFromMap(m map[string]any) (Node, error) {
	n := Node{
		ID:          asString(m["id"]),
		Type:        asString(m["type"]),
		Label:       asString(m["label"]),
		Position:    positionFrom(m["position"]),
		Data:        asMap(m["data"]),
		Selected:    asBool(m["selected"], false),
		Draggable:   asBool(m["draggable"], true),
		Connectable: asBool(m["connectable"], true),
		Deletable:   asBool(m["deletable"], true),
		ClassName:   asString(m["className"]),
		View:        m["view"],
	}
	if style := asMap(m["style"]); len(style) > 0 {
		n.Style = style
	}
	n.ApplyDefaults()
	if err := n.Validate(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// CoerceNode accepts a Node, *Node, or plain map and returns the canonical
// node with defaults applied.
func CoerceNode(v any) (Node, error) {
	switch node := v.(type) {
	case Node:
		node.ApplyDefaults()
		return node, node.Validate()
	case *Node:
		if node == nil {
			return Node{}, errors.New(errors.ErrCodeValidation, "node: nil spec")
		}
		n := *node
		n.ApplyDefaults()
		return n, n.Validate()
	case map[string]any:
		return NodeFromMap(node)
	default:
		return Node{}, errors.New(errors.ErrCodeValidation, "node: unsupported spec type %T", v)
	}
}

// Clone returns a copy with an independent Data map. View is shared: content
// identity must survive copies.
func (n Node) Clone() Node {
	out := n
	out.Data = maps.Clone(orEmpty(n.Data))
	if n.Style != nil {
		out.Style = maps.Clone(n.Style)
	}
	return out
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

package spec

import (
	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/schema"
)

// PanePolicy values for node types carried over from the canvas contract.
const (
	PaneSingle = "single"
	PaneMulti  = "multi"
)

// NodeType declares the schema and port layout for a node type.
//
// Inputs and Outputs are ordered port name lists where nil and empty are
// distinct: nil means "unset" and resolves to a single default port, while
// an empty slice means the type explicitly has no ports on that side.
type NodeType struct {
	Type    string
	Label   string
	Schema  *schema.Schema
	Inputs  []string
	Outputs []string

	// PanePolicy controls how the canvas embeds node content.
	PanePolicy string
}

// DefaultPortName is the port used when a node type leaves Inputs or
// Outputs unset.
const DefaultPortName = "default"

// Validate checks required fields.
func (t NodeType) Validate() error {
	if t.Type == "" {
		return errors.New(errors.ErrCodeValidation, "node type: missing required field %q", "type")
	}
	return nil
}

// InputPorts resolves the effective input port list: nil means one default
// port, empty means none.
func (t NodeType) InputPorts() []string {
	if t.Inputs == nil {
		return []string{DefaultPortName}
	}
	return t.Inputs
}

// OutputPorts resolves the effective output port list.
func (t NodeType) OutputPorts() []string {
	if t.Outputs == nil {
		return []string{DefaultPortName}
	}
	return t.Outputs
}

// FirstInput returns the first effective input port name, or empty when the
// type explicitly declares no inputs.
func (t NodeType) FirstInput() string {
	ports := t.InputPorts()
	if len(ports) == 0 {
		return ""
	}
	return ports[0]
}

// FirstOutput returns the first effective output port name.
func (t NodeType) FirstOutput() string {
	ports := t.OutputPorts()
	if len(ports) == 0 {
		return ""
	}
	return ports[0]
}

// ToMap converts the node type to its canonical plain mapping.
func (t NodeType) ToMap() map[string]any {
	out := map[string]any{"type": t.Type}
	if t.Label != "" {
		out["label"] = t.Label
	}
	if t.Schema != nil {
		props := make([]any, 0, len(t.Schema.Properties))
		for _, p := range t.Schema.Properties {
			entry := map[string]any{"name": p.Name, "type": string(p.Type)}
			if p.Label != "" {
				entry["label"] = p.Label
			}
			if p.Default != nil {
				entry["default"] = p.Default
			}
			if len(p.Enum) > 0 {
				entry["enum"] = append([]any{}, p.Enum...)
			}
			props = append(props, entry)
		}
		out["schema"] = map[string]any{"properties": props}
	}
	if t.Inputs != nil {
		out["inputs"] = append([]string{}, t.Inputs...)
	}
	if t.Outputs != nil {
		out["outputs"] = append([]string{}, t.Outputs...)
	}
	if t.PanePolicy != "" && t.PanePolicy != PaneSingle {
		out["pane_policy"] = t.PanePolicy
	}
	return out
}

// NodeTypeFromMap parses a plain mapping into a NodeType. The schema entry
// is normalized; distinguishing nil from empty port lists is preserved.
func NodeTypeFromMap(m map[string]any) (NodeType, error) {
	t := NodeType{
		Type:       asString(m["type"]),
		Label:      asString(m["label"]),
		Schema:     schema.Normalize(m["schema"]),
		PanePolicy: asString(m["pane_policy"]),
	}
	if _, ok := m["inputs"]; ok {
		t.Inputs = orEmptyStrings(asStrings(m["inputs"]))
	}
	if _, ok := m["outputs"]; ok {
		t.Outputs = orEmptyStrings(asStrings(m["outputs"]))
	}
	if t.PanePolicy == "" {
		t.PanePolicy = PaneSingle
	}
	return t, t.Validate()
}

// CoerceNodeType accepts a NodeType, *NodeType, or plain map. Schemas given
// in any supported source form are normalized.
func CoerceNodeType(v any) (NodeType, error) {
	switch t := v.(type) {
	case NodeType:
		t.Schema = schema.Normalize(t.Schema)
		if t.PanePolicy == "" {
			t.PanePolicy = PaneSingle
		}
		return t, t.Validate()
	case *NodeType:
		if t == nil {
			return NodeType{}, errors.New(errors.ErrCodeValidation, "node type: nil spec")
		}
		return CoerceNodeType(*t)
	case map[string]any:
		return NodeTypeFromMap(t)
	default:
		return NodeType{}, errors.New(errors.ErrCodeValidation, "node type: unsupported spec type %T", v)
	}
}

// EdgeType declares the schema for an edge type.
type EdgeType struct {
	Type   string
	Label  string
	Schema *schema.Schema
}

// Validate checks required fields.
func (t EdgeType) Validate() error {
	if t.Type == "" {
		return errors.New(errors.ErrCodeValidation, "edge type: missing required field %q", "type")
	}
	return nil
}

// ToMap converts the edge type to its canonical plain mapping.
func (t EdgeType) ToMap() map[string]any {
	out := map[string]any{"type": t.Type}
	if t.Label != "" {
		out["label"] = t.Label
	}
	if t.Schema != nil {
		nt := NodeType{Schema: t.Schema}
		out["schema"] = nt.ToMap()["schema"]
	}
	return out
}

// EdgeTypeFromMap parses a plain mapping into an EdgeType.
func EdgeTypeFromMap(m map[string]any) (EdgeType, error) {
	t := EdgeType{
		Type:   asString(m["type"]),
		Label:  asString(m["label"]),
		Schema: schema.Normalize(m["schema"]),
	}
	return t, t.Validate()
}

// CoerceEdgeType accepts an EdgeType, *EdgeType, or plain map.
func CoerceEdgeType(v any) (EdgeType, error) {
	switch t := v.(type) {
	case EdgeType:
		t.Schema = schema.Normalize(t.Schema)
		return t, t.Validate()
	case *EdgeType:
		if t == nil {
			return EdgeType{}, errors.New(errors.ErrCodeValidation, "edge type: nil spec")
		}
		return CoerceEdgeType(*t)
	case map[string]any:
		return EdgeTypeFromMap(t)
	default:
		return EdgeType{}, errors.New(errors.ErrCodeValidation, "edge type: unsupported spec type %T", v)
	}
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

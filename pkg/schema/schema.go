// Package schema normalizes heterogeneous schema sources into one canonical
// representation used by editor resolution.
//
// A schema describes the editable properties of a node or edge type. Schemas
// can be declared several ways, and [Normalize] folds all of them into the
// same canonical [Schema]:
//
//   - a [Schema] value or pointer (already canonical)
//   - a raw map form, e.g. {"properties": [{"name": "status", ...}]}
//   - a struct with `flow:` field tags (declarative model)
//   - any type implementing [Provider] (validated model)
//
// Normalization is total: it never fails. Inputs that carry no derivable
// schema normalize to nil, because schema absence must always be a valid,
// handled state downstream - editors fall back to a raw-data view.
package schema

import "reflect"

// PropertyType tags the value type of a schema property.
type PropertyType string

// Canonical property type tags.
const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeInteger PropertyType = "integer"
	TypeBoolean PropertyType = "boolean"
	TypeEnum    PropertyType = "enum"
	TypeObject  PropertyType = "object"
)

// Property describes a single editable property of a node or edge type.
type Property struct {
	Name    string       `json:"name"`
	Label   string       `json:"label,omitempty"`
	Type    PropertyType `json:"type"`
	Default any          `json:"default,omitempty"`
	Enum    []any        `json:"enum,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the property name.
func (p Property) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Name
}

// Schema is the canonical schema representation: an ordered property list.
type Schema struct {
	Properties []Property `json:"properties"`
}

// Property returns the named property and whether it exists.
func (s *Schema) Property(name string) (Property, bool) {
	if s == nil {
		return Property{}, false
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// HasProperties reports whether the schema defines at least one property.
// A nil schema has no properties.
func (s *Schema) HasProperties() bool {
	return s != nil && len(s.Properties) > 0
}

// Clone returns a deep-enough copy: the property slice is copied so the
// caller can append without affecting the original. Default and Enum values
// are shared; they are treated as immutable.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{Properties: make([]Property, len(s.Properties))}
	copy(out.Properties, s.Properties)
	return out
}

// Equal reports whether two schemas declare the same properties in the same
// order. Defaults are compared with deep equality; Enum slices element-wise.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	if len(s.Properties) != len(other.Properties) {
		return false
	}
	for i, p := range s.Properties {
		q := other.Properties[i]
		if p.Name != q.Name || p.Label != q.Label || p.Type != q.Type {
			return false
		}
		// Defaults may hold maps or slices, so plain == would panic.
		if !reflect.DeepEqual(p.Default, q.Default) {
			return false
		}
		if len(p.Enum) != len(q.Enum) {
			return false
		}
		for j := range p.Enum {
			if p.Enum[j] != q.Enum[j] {
				return false
			}
		}
	}
	return true
}

// Provider supplies a schema for types that carry their own validated model.
// Normalize recognizes any value implementing this interface.
type Provider interface {
	FlowSchema() *Schema
}

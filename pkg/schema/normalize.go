package schema

import (
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Normalize converts any supported schema source into the canonical form.
//
// Recognized sources, in detection order:
//   - nil: returns nil
//   - *Schema / Schema: returned as a copy (idempotent)
//   - Provider: the provided schema, normalized again
//   - map[string]any: raw schema form with a "properties" entry
//   - struct or struct pointer: fields derived via `flow:` tags
//
// Anything else normalizes to nil. Normalize never returns an error and
// never panics; malformed entries inside an otherwise valid source are
// skipped rather than failing the whole schema.
func Normalize(source any) *Schema {
	switch src := source.(type) {
	case nil:
		return nil
	case *Schema:
		return src.Clone()
	case Schema:
		return src.Clone()
	case Provider:
		return Normalize(src.FlowSchema())
	case map[string]any:
		return fromMap(src)
	}

	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		return fromStruct(rv)
	}
	return nil
}

// fromMap parses the raw map form. The "properties" entry may be a list of
// property maps or a map keyed by property name; both are accepted since
// hand-written schemas commonly use either.
func fromMap(src map[string]any) *Schema {
	raw, ok := src["properties"]
	if !ok {
		return nil
	}

	var props []Property
	switch entries := raw.(type) {
	case []any:
		for _, entry := range entries {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if p, ok := propertyFromMap(m, ""); ok {
				props = append(props, p)
			}
		}
	case []map[string]any:
		for _, m := range entries {
			if p, ok := propertyFromMap(m, ""); ok {
				props = append(props, p)
			}
		}
	case map[string]any:
		for _, name := range slices.Sorted(maps.Keys(entries)) {
			m, ok := entries[name].(map[string]any)
			if !ok {
				continue
			}
			if p, ok := propertyFromMap(m, name); ok {
				props = append(props, p)
			}
		}
	default:
		return nil
	}

	if props == nil {
		props = []Property{}
	}
	return &Schema{Properties: props}
}

func propertyFromMap(m map[string]any, fallbackName string) (Property, bool) {
	p := Property{Name: fallbackName}
	if name, ok := m["name"].(string); ok && name != "" {
		p.Name = name
	}
	if p.Name == "" {
		return Property{}, false
	}
	if label, ok := m["label"].(string); ok {
		p.Label = label
	}
	if typ, ok := m["type"].(string); ok {
		p.Type = coerceType(typ)
	} else {
		p.Type = TypeString
	}
	p.Default = m["default"]
	if choices, ok := m["enum"].([]any); ok && len(choices) > 0 {
		p.Enum = choices
		p.Type = TypeEnum
	}
	return p, true
}

// coerceType maps loosely written type names onto the canonical tags.
func coerceType(raw string) PropertyType {
	switch strings.ToLower(raw) {
	case "string", "str", "text":
		return TypeString
	case "number", "float", "double":
		return TypeNumber
	case "integer", "int":
		return TypeInteger
	case "boolean", "bool":
		return TypeBoolean
	case "enum", "select", "choice":
		return TypeEnum
	default:
		return TypeObject
	}
}

// fromStruct derives a schema from exported struct fields.
//
// The `flow` tag names the property; fields tagged `flow:"-"` or left
// unexported are skipped. Untagged exported fields use the lowercased field
// name. Supporting tags:
//
//	flow:"status,label=Current status"
//	default:"idle"
//	enum:"idle,running,done"
func fromStruct(rv reflect.Value) *Schema {
	rt := rv.Type()
	props := []Property{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("flow")
		if tag == "-" {
			continue
		}

		p := Property{Name: strings.ToLower(field.Name)}
		if tag != "" {
			parts := strings.Split(tag, ",")
			if parts[0] != "" {
				p.Name = parts[0]
			}
			for _, opt := range parts[1:] {
				if label, ok := strings.CutPrefix(opt, "label="); ok {
					p.Label = label
				}
			}
		}

		p.Type = typeForKind(field.Type)
		if raw, ok := field.Tag.Lookup("enum"); ok && raw != "" {
			for _, v := range strings.Split(raw, ",") {
				p.Enum = append(p.Enum, v)
			}
			p.Type = TypeEnum
		}
		if raw, ok := field.Tag.Lookup("default"); ok {
			p.Default = parseDefault(raw, p.Type)
		} else if !rv.Field(i).IsZero() {
			p.Default = rv.Field(i).Interface()
		}

		props = append(props, p)
	}
	return &Schema{Properties: props}
}

func typeForKind(t reflect.Type) PropertyType {
	switch t.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	default:
		return TypeObject
	}
}

// parseDefault interprets a `default:` tag value according to the property
// type. Unparseable values fall back to the raw string rather than failing.
func parseDefault(raw string, typ PropertyType) any {
	switch typ {
	case TypeInteger:
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	case TypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case TypeBoolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}

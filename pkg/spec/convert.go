package spec

// Loose value coercion for map-form specs. JSON decoding hands back float64
// for every number, but hand-written maps carry int and the round-trip
// contract has to hold for both.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	}
	return 0, false
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func positionFrom(v any) Position {
	switch pos := v.(type) {
	case Position:
		return pos
	case map[string]any:
		x, _ := asFloat(pos["x"])
		y, _ := asFloat(pos["y"])
		return Position{X: x, Y: y}
	case []float64:
		if len(pos) == 2 {
			return Position{X: pos[0], Y: pos[1]}
		}
	case []any:
		if len(pos) == 2 {
			x, _ := asFloat(pos[0])
			y, _ := asFloat(pos[1])
			return Position{X: x, Y: y}
		}
	}
	return Position{}
}

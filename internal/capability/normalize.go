package capability

import (
	"encoding/json"
	"reflect"
)

// Normalize recursively converts a value crossing the script boundary into
// JSON-native shapes: map[string]any, []any, string, bool, numbers, nil.
// Values are copied, so neither side can observe later mutations by the
// other. Unconvertible values fall back to a JSON round trip and, failing
// that, are passed through as-is.
func Normalize(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return NormalizeMap(val)
	case []any:
		return NormalizeSlice(val)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = v
		}
		return out
	case map[string]float64:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = v
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = v
		}
		return out
	case []float64:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = v
		}
		return out
	case string, bool, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case json.Number:
		return val
	default:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil
			}
			return Normalize(rv.Elem().Interface())
		}
		if out, ok := normalizeViaJSON(val); ok {
			return out
		}
		return val
	}
}

// NormalizeMap normalizes every value of a string-keyed map.
func NormalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}

// NormalizeSlice normalizes every element of a slice.
func NormalizeSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = Normalize(v)
	}
	return out
}

func normalizeViaJSON(v any) (any, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false
	}
	return out, true
}

// ToFloat coerces the numeric shapes produced by script engines and JSON
// decoding into a float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ToBool coerces a value to a bool. Numbers follow script truthiness:
// zero is false, anything else true.
func ToBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	default:
		if f, ok := ToFloat(v); ok {
			return f != 0, true
		}
		return false, false
	}
}

// ToString coerces a value to a string without formatting non-strings.
func ToString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Arg returns the i-th positional argument, or nil when absent.
func Arg(args []any, i int) any {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// StringArg returns the i-th positional argument coerced to a string.
func StringArg(args []any, i int) (string, bool) {
	return ToString(Arg(args, i))
}

// FloatArg returns the i-th positional argument coerced to a float64.
func FloatArg(args []any, i int) (float64, bool) {
	return ToFloat(Arg(args, i))
}

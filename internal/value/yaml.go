package value

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML decodes a YAML node into a Value.
// Mappings with non-string keys are rejected.
func FromYAML(node *yaml.Node) (Value, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	return fromYAMLDecoded(raw)
}

func fromYAMLDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := fromYAMLDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := fromYAMLDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	case map[any]any:
		return nil, fmt.Errorf("mapping keys must be strings")
	default:
		return Of(val), nil
	}
}

// ToYAML converts v into a plain Go value suitable for yaml.Marshal.
func ToYAML(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Uint:
		return uint64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToYAML(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToYAML(elem)
		}
		return out
	default:
		return nil
	}
}

package graph

import (
	"encoding/json"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowgraph/internal/value"
)

// Mutability controls whether checked writes may change a property.
type Mutability int

const (
	Mutable Mutability = iota
	Immutable
)

// String returns "mutable" or "immutable".
func (m Mutability) String() string {
	if m == Immutable {
		return "immutable"
	}
	return "mutable"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mutability) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mutability) UnmarshalText(text []byte) error {
	switch string(text) {
	case "mutable", "":
		*m = Mutable
	case "immutable":
		*m = Immutable
	default:
		return fmt.Errorf("invalid mutability %q", text)
	}
	return nil
}

// DataType is the declared type of a property.
type DataType string

const (
	DataTypeNull   DataType = "null"
	DataTypeBool   DataType = "bool"
	DataTypeNumber DataType = "number"
	DataTypeString DataType = "string"
	DataTypeArray  DataType = "array"
	DataTypeObject DataType = "object"
	DataTypeAny    DataType = "any"
)

// ValidDataTypes lists the accepted data type names.
var ValidDataTypes = map[DataType]bool{
	DataTypeNull:   true,
	DataTypeBool:   true,
	DataTypeNumber: true,
	DataTypeString: true,
	DataTypeArray:  true,
	DataTypeObject: true,
	DataTypeAny:    true,
}

// DefaultValue returns the zero value of the data type.
// Null and any default to the empty string.
func (d DataType) DefaultValue() value.Value {
	switch d {
	case DataTypeBool:
		return value.Bool(false)
	case DataTypeNumber:
		return value.Int(0)
	case DataTypeArray:
		return value.Array{}
	case DataTypeObject:
		return value.Object{}
	default:
		return value.String("")
	}
}

// PropertyType declares a property of a component or type.
type PropertyType struct {
	Name        string
	Description string
	DataType    DataType
	Mutability  Mutability
	// Default overrides the data type default when non-nil.
	Default value.Value
}

// NewPropertyType creates a mutable property declaration.
func NewPropertyType(name string, dataType DataType) PropertyType {
	return PropertyType{Name: name, DataType: dataType}
}

// DefaultValue returns a fresh copy of the declared default.
func (p PropertyType) DefaultValue() value.Value {
	if p.Default != nil {
		return value.Clone(p.Default)
	}
	return p.DataType.DefaultValue()
}

type propertyTypeJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	DataType    DataType        `json:"data_type"`
	Mutability  Mutability      `json:"mutability"`
	Default     json.RawMessage `json:"default,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p PropertyType) MarshalJSON() ([]byte, error) {
	out := propertyTypeJSON{
		Name:        p.Name,
		Description: p.Description,
		DataType:    p.DataType,
		Mutability:  p.Mutability,
	}
	if p.Default != nil {
		b, err := value.Marshal(p.Default)
		if err != nil {
			return nil, fmt.Errorf("property %q default: %w", p.Name, err)
		}
		out.Default = b
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PropertyType) UnmarshalJSON(data []byte) error {
	var in propertyTypeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = PropertyType{
		Name:        in.Name,
		Description: in.Description,
		DataType:    in.DataType,
		Mutability:  in.Mutability,
	}
	if len(in.Default) > 0 {
		v, err := value.Unmarshal(in.Default)
		if err != nil {
			return fmt.Errorf("property %q default: %w", in.Name, err)
		}
		p.Default = v
	}
	return nil
}

// PropertyInstances maps property names to raw values.
type PropertyInstances map[string]value.Value

// Get returns the named value, or nil when absent.
func (p PropertyInstances) Get(name string) value.Value {
	return p[name]
}

// Names returns property names in sorted order.
func (p PropertyInstances) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy.
func (p PropertyInstances) Clone() PropertyInstances {
	out := make(PropertyInstances, len(p))
	for k, v := range p {
		out[k] = value.Clone(v)
	}
	return out
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (p PropertyInstances) MarshalJSON() ([]byte, error) {
	return value.Object(p).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PropertyInstances) UnmarshalJSON(data []byte) error {
	var obj value.Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("properties: %w", err)
	}
	*p = PropertyInstances(obj)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p PropertyInstances) MarshalYAML() (any, error) {
	return value.ToYAML(value.Object(p)), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PropertyInstances) UnmarshalYAML(node *yaml.Node) error {
	v, err := value.FromYAML(node)
	if err != nil {
		return fmt.Errorf("properties: %w", err)
	}
	switch obj := v.(type) {
	case value.Object:
		*p = PropertyInstances(obj)
	case value.Null:
		*p = PropertyInstances{}
	default:
		return fmt.Errorf("properties: expected mapping, got %s", value.Kind(v))
	}
	return nil
}

package graph

import (
	"fmt"
	"strings"
)

// NamespaceSeparator separates a namespace from a type name.
const NamespaceSeparator = "::"

// InstanceSeparator separates a relation type name from its instance id.
const InstanceSeparator = "__"

// NamespacedType identifies a type by namespace and name.
// The textual form is "namespace::Name".
type NamespacedType struct {
	Namespace string
	Name      string
}

// String returns "namespace::Name".
func (t NamespacedType) String() string {
	return t.Namespace + NamespaceSeparator + t.Name
}

// IsZero reports whether both parts are empty.
func (t NamespacedType) IsZero() bool {
	return t.Namespace == "" && t.Name == ""
}

// MarshalText implements encoding.TextMarshaler.
// The zero value marshals as the empty string.
func (t NamespacedType) MarshalText() ([]byte, error) {
	if t.IsZero() {
		return []byte{}, nil
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NamespacedType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*t = NamespacedType{}
		return nil
	}
	parsed, err := ParseNamespacedType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseNamespacedType parses "namespace::Name". The namespace may itself
// contain "::"; the name is everything after the last separator.
func ParseNamespacedType(s string) (NamespacedType, error) {
	idx := strings.LastIndex(s, NamespaceSeparator)
	if idx <= 0 || idx+len(NamespaceSeparator) == len(s) {
		return NamespacedType{}, fmt.Errorf("invalid namespaced type %q: expected namespace::Name", s)
	}
	return NamespacedType{
		Namespace: s[:idx],
		Name:      s[idx+len(NamespaceSeparator):],
	}, nil
}

// ComponentTypeID identifies a component.
type ComponentTypeID struct{ NamespacedType }

// NewComponentTypeID creates a component type id.
func NewComponentTypeID(namespace, name string) ComponentTypeID {
	return ComponentTypeID{NamespacedType{Namespace: namespace, Name: name}}
}

// ParseComponentTypeID parses "namespace::Name".
func ParseComponentTypeID(s string) (ComponentTypeID, error) {
	t, err := ParseNamespacedType(s)
	return ComponentTypeID{t}, err
}

// EntityTypeID identifies an entity type.
type EntityTypeID struct{ NamespacedType }

// NewEntityTypeID creates an entity type id.
func NewEntityTypeID(namespace, name string) EntityTypeID {
	return EntityTypeID{NamespacedType{Namespace: namespace, Name: name}}
}

// ParseEntityTypeID parses "namespace::Name".
func ParseEntityTypeID(s string) (EntityTypeID, error) {
	t, err := ParseNamespacedType(s)
	return EntityTypeID{t}, err
}

// RelationTypeID identifies a relation type.
type RelationTypeID struct{ NamespacedType }

// NewRelationTypeID creates a relation type id.
func NewRelationTypeID(namespace, name string) RelationTypeID {
	return RelationTypeID{NamespacedType{Namespace: namespace, Name: name}}
}

// ParseRelationTypeID parses "namespace::Name".
func ParseRelationTypeID(s string) (RelationTypeID, error) {
	t, err := ParseNamespacedType(s)
	return RelationTypeID{t}, err
}

// BehaviourTypeID identifies a behaviour marker.
type BehaviourTypeID struct{ NamespacedType }

// NewBehaviourTypeID creates a behaviour type id.
func NewBehaviourTypeID(namespace, name string) BehaviourTypeID {
	return BehaviourTypeID{NamespacedType{Namespace: namespace, Name: name}}
}

// ParseBehaviourTypeID parses "namespace::Name".
func ParseBehaviourTypeID(s string) (BehaviourTypeID, error) {
	t, err := ParseNamespacedType(s)
	return BehaviourTypeID{t}, err
}

// RelationInstanceTypeID is a relation type plus an optional discriminator
// that lets several relations of one type connect the same two entities.
// The textual form is "namespace::Name" or "namespace::Name__instance".
type RelationInstanceTypeID struct {
	Type       RelationTypeID
	InstanceID string
}

// NewRelationInstanceTypeID creates a relation instance type id.
// An empty instance id denotes the singleton relation of that type.
func NewRelationInstanceTypeID(ty RelationTypeID, instanceID string) RelationInstanceTypeID {
	return RelationInstanceTypeID{Type: ty, InstanceID: instanceID}
}

// String returns the textual form.
func (t RelationInstanceTypeID) String() string {
	if t.InstanceID == "" {
		return t.Type.String()
	}
	return t.Type.String() + InstanceSeparator + t.InstanceID
}

// MarshalText implements encoding.TextMarshaler.
func (t RelationInstanceTypeID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *RelationInstanceTypeID) UnmarshalText(text []byte) error {
	parsed, err := ParseRelationInstanceTypeID(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseRelationInstanceTypeID parses "namespace::Name[__instance]".
// The instance id starts after the first "__" of the type name.
func ParseRelationInstanceTypeID(s string) (RelationInstanceTypeID, error) {
	nt, err := ParseNamespacedType(s)
	if err != nil {
		return RelationInstanceTypeID{}, err
	}
	name, instance, _ := strings.Cut(nt.Name, InstanceSeparator)
	if name == "" {
		return RelationInstanceTypeID{}, fmt.Errorf("invalid relation instance type %q: empty type name", s)
	}
	return RelationInstanceTypeID{
		Type:       NewRelationTypeID(nt.Namespace, name),
		InstanceID: instance,
	}, nil
}

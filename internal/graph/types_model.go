package graph

import "slices"

// Component is a named set of property declarations that can be applied
// to entities and relations.
type Component struct {
	Type        ComponentTypeID `json:"type"`
	Description string          `json:"description,omitempty"`
	Properties  []PropertyType  `json:"properties"`
}

// Property returns the named declaration.
func (c *Component) Property(name string) (PropertyType, bool) {
	return findProperty(c.Properties, name)
}

// EntityType declares the components and own properties of an entity.
type EntityType struct {
	Type        EntityTypeID      `json:"type"`
	Description string            `json:"description,omitempty"`
	Components  []ComponentTypeID `json:"components,omitempty"`
	Properties  []PropertyType    `json:"properties"`
}

// IsA reports whether the type lists the component.
func (t *EntityType) IsA(c ComponentTypeID) bool {
	return slices.Contains(t.Components, c)
}

// Property returns the named own declaration.
func (t *EntityType) Property(name string) (PropertyType, bool) {
	return findProperty(t.Properties, name)
}

// RelationType declares a directed edge between two entity types.
// A zero outbound or inbound type accepts any entity.
type RelationType struct {
	Type         RelationTypeID    `json:"type"`
	Description  string            `json:"description,omitempty"`
	OutboundType EntityTypeID      `json:"outbound_type"`
	InboundType  EntityTypeID      `json:"inbound_type"`
	Components   []ComponentTypeID `json:"components,omitempty"`
	Properties   []PropertyType    `json:"properties"`
}

// IsA reports whether the type lists the component.
func (t *RelationType) IsA(c ComponentTypeID) bool {
	return slices.Contains(t.Components, c)
}

// Property returns the named own declaration.
func (t *RelationType) Property(name string) (PropertyType, bool) {
	return findProperty(t.Properties, name)
}

func findProperty(props []PropertyType, name string) (PropertyType, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyType{}, false
}

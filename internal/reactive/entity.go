package reactive

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

// Entity is a live graph node: identity, type, properties, components and
// behaviours. Entities are shared by pointer between relations and flows.
type Entity struct {
	core[uuid.UUID]

	ty          graph.EntityTypeID
	id          uuid.UUID
	name        string
	description string
}

// NewEntity creates an entity whose properties are all mutable.
func NewEntity(ty graph.EntityTypeID, id uuid.UUID, props graph.PropertyInstances) *Entity {
	e := &Entity{ty: ty, id: id}
	e.init(NewPropertiesFromInstances(id, props), nil, nil)
	return e
}

// NewEntityFromInstance materializes a flat entity instance.
func NewEntityFromInstance(inst graph.EntityInstance) *Entity {
	e := &Entity{
		ty:          inst.Type,
		id:          inst.ID,
		name:        inst.Name,
		description: inst.Description,
	}
	e.init(NewPropertiesFromInstances(inst.ID, inst.Properties), inst.Components, inst.Behaviours)
	return e
}

// NewEntityFromType creates an entity with every property declared by the
// type and its components, each at its declared default and mutability.
// Components unknown to the resolver are applied as markers only.
func NewEntityFromType(et *graph.EntityType, id uuid.UUID, resolver ComponentResolver) *Entity {
	e := &Entity{ty: et.Type, id: id}
	e.init(NewProperties(id), nil, nil)
	for _, pt := range et.Properties {
		e.AddProperty(pt.Name, pt.Mutability, pt.DefaultValue())
	}
	for _, ty := range et.Components {
		if comp, ok := resolver.Component(ty); ok {
			e.AddComponentWithProperties(comp)
		} else {
			e.AddComponent(ty)
		}
	}
	return e
}

// ID returns the entity id.
func (e *Entity) ID() uuid.UUID { return e.id }

// Type returns the entity type.
func (e *Entity) Type() graph.EntityTypeID { return e.ty }

// Name returns the instance name.
func (e *Entity) Name() string { return e.name }

// Description returns the instance description.
func (e *Entity) Description() string { return e.description }

// String returns "namespace::Type__id".
func (e *Entity) String() string {
	return e.ty.String() + graph.InstanceSeparator + e.id.String()
}

// ToInstance returns the flat form with current property values.
func (e *Entity) ToInstance() graph.EntityInstance {
	return graph.EntityInstance{
		Type:        e.ty,
		ID:          e.id,
		Name:        e.name,
		Description: e.description,
		Properties:  e.PropertyInstances(),
		Components:  e.Components(),
		Behaviours:  e.Behaviours(),
	}
}

// MarshalJSON encodes the flat form.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToInstance())
}

// Materialize completes an entity or relation from its component
// definitions: every declared property that is missing is created at its
// default, and every declared property that exists takes the declared
// mutability. Components the resolver does not know are skipped.
func Materialize(inst interface {
	PropertyContainer
	ComponentContainer
}, resolver ComponentResolver) {
	for _, ty := range inst.Components() {
		comp, ok := resolver.Component(ty)
		if !ok {
			continue
		}
		for _, pt := range comp.Properties {
			if !inst.AddProperty(pt.Name, pt.Mutability, pt.DefaultValue()) {
				inst.SetPropertyMutability(pt.Name, pt.Mutability)
			}
		}
	}
}

// Values is a convenience for building property instances in code.
func Values(kv map[string]any) graph.PropertyInstances {
	out := make(graph.PropertyInstances, len(kv))
	for k, v := range kv {
		out[k] = value.Of(v)
	}
	return out
}

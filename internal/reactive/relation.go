package reactive

import (
	"encoding/json"

	"github.com/roach88/flowgraph/internal/graph"
)

// Relation is a live directed edge between two entities. The endpoints are
// shared: many relations may point at the same entity and none of them owns
// it.
//
// The identity triple is computed from the endpoints and the instance type,
// all of which are fixed at construction.
type Relation struct {
	core[graph.RelationInstanceID]

	outbound    *Entity
	ty          graph.RelationInstanceTypeID
	inbound     *Entity
	name        string
	description string
}

// NewRelation creates a relation whose properties are all mutable.
func NewRelation(outbound *Entity, ty graph.RelationInstanceTypeID, inbound *Entity, props graph.PropertyInstances) *Relation {
	r := &Relation{outbound: outbound, ty: ty, inbound: inbound}
	r.init(NewPropertiesFromInstances(r.ID(), props), nil, nil)
	return r
}

// NewRelationFromInstance materializes a flat relation between the given
// endpoint entities. The endpoint ids recorded in inst are not consulted.
func NewRelationFromInstance(outbound, inbound *Entity, inst graph.RelationInstance) *Relation {
	r := &Relation{
		outbound:    outbound,
		ty:          inst.Type,
		inbound:     inbound,
		name:        inst.Name,
		description: inst.Description,
	}
	r.init(NewPropertiesFromInstances(r.ID(), inst.Properties), inst.Components, inst.Behaviours)
	return r
}

// ID returns (outbound id, instance type, inbound id).
func (r *Relation) ID() graph.RelationInstanceID {
	return graph.NewRelationInstanceID(r.outbound.ID(), r.ty, r.inbound.ID())
}

// Outbound returns the source entity.
func (r *Relation) Outbound() *Entity { return r.outbound }

// Inbound returns the target entity.
func (r *Relation) Inbound() *Entity { return r.inbound }

// Type returns the relation instance type.
func (r *Relation) Type() graph.RelationInstanceTypeID { return r.ty }

// RelationTypeID returns the relation type without the instance id.
func (r *Relation) RelationTypeID() graph.RelationTypeID { return r.ty.Type }

// InstanceID returns the instance discriminator, empty for singletons.
func (r *Relation) InstanceID() string { return r.ty.InstanceID }

// Name returns the instance name.
func (r *Relation) Name() string { return r.name }

// Description returns the instance description.
func (r *Relation) Description() string { return r.description }

// String returns "outbound-[type]->inbound".
func (r *Relation) String() string {
	return r.ID().String()
}

// ToInstance returns the flat form with current property values.
func (r *Relation) ToInstance() graph.RelationInstance {
	return graph.RelationInstance{
		OutboundID:  r.outbound.ID(),
		Type:        r.ty,
		InboundID:   r.inbound.ID(),
		Name:        r.name,
		Description: r.description,
		Properties:  r.PropertyInstances(),
		Components:  r.Components(),
		Behaviours:  r.Behaviours(),
	}
}

// MarshalJSON encodes the flat form.
func (r *Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToInstance())
}

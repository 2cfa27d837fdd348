package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityInstance is the flat form of an entity.
type EntityInstance struct {
	Type        EntityTypeID      `json:"type" yaml:"type"`
	ID          uuid.UUID         `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  PropertyInstances `json:"properties" yaml:"properties"`
	Components  []ComponentTypeID `json:"components,omitempty" yaml:"components,omitempty"`
	Behaviours  []BehaviourTypeID `json:"behaviours,omitempty" yaml:"behaviours,omitempty"`
}

// RelationInstanceID is the identity of a relation: the ordered triple of
// outbound entity id, relation instance type and inbound entity id.
// It is comparable and used as a map key.
type RelationInstanceID struct {
	OutboundID uuid.UUID
	Type       RelationInstanceTypeID
	InboundID  uuid.UUID
}

// NewRelationInstanceID creates a relation identity.
func NewRelationInstanceID(outboundID uuid.UUID, ty RelationInstanceTypeID, inboundID uuid.UUID) RelationInstanceID {
	return RelationInstanceID{OutboundID: outboundID, Type: ty, InboundID: inboundID}
}

// String returns "outbound-[type]->inbound".
func (id RelationInstanceID) String() string {
	return fmt.Sprintf("%s-[%s]->%s", id.OutboundID, id.Type, id.InboundID)
}

// RelationInstance is the flat form of a relation.
type RelationInstance struct {
	OutboundID  uuid.UUID              `json:"outbound_id" yaml:"outbound_id"`
	Type        RelationInstanceTypeID `json:"type" yaml:"type"`
	InboundID   uuid.UUID              `json:"inbound_id" yaml:"inbound_id"`
	Name        string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  PropertyInstances      `json:"properties" yaml:"properties"`
	Components  []ComponentTypeID      `json:"components,omitempty" yaml:"components,omitempty"`
	Behaviours  []BehaviourTypeID      `json:"behaviours,omitempty" yaml:"behaviours,omitempty"`
}

// ID returns the identity triple.
func (r *RelationInstance) ID() RelationInstanceID {
	return NewRelationInstanceID(r.OutboundID, r.Type, r.InboundID)
}

// FlowInstance is the flat form of a flow. ID is the id of the wrapper
// entity, which must be present in Entities.
type FlowInstance struct {
	ID          uuid.UUID          `json:"id" yaml:"id"`
	Type        EntityTypeID       `json:"type" yaml:"type"`
	Name        string             `json:"name,omitempty" yaml:"name,omitempty"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Entities    []EntityInstance   `json:"entities" yaml:"entities"`
	Relations   []RelationInstance `json:"relations" yaml:"relations"`
}

// NewFlowInstance creates a flow around its wrapper entity.
func NewFlowInstance(wrapper EntityInstance) FlowInstance {
	return FlowInstance{
		ID:        wrapper.ID,
		Type:      wrapper.Type,
		Name:      wrapper.Name,
		Entities:  []EntityInstance{wrapper},
		Relations: []RelationInstance{},
	}
}

// Wrapper returns the wrapper entity instance.
func (f *FlowInstance) Wrapper() (EntityInstance, bool) {
	for _, e := range f.Entities {
		if e.ID == f.ID {
			return e, true
		}
	}
	return EntityInstance{}, false
}

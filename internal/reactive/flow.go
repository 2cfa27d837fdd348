package reactive

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/flowgraph/internal/graph"
)

// wrapper lets Flow embed its wrapper entity without the field name
// colliding with Flow.Entity.
type wrapper = Entity

// Flow is a named subgraph: a wrapper entity plus member entities and
// relations. From the outside a flow is its wrapper: the property, component
// and behaviour surface is the wrapper's. The flow keeps its own type, name
// and description, which start out as the wrapper's but may differ.
//
// Membership changes are recorded in four append-only diff lists so a store
// can commit them incrementally.
type Flow struct {
	*wrapper

	ty          graph.EntityTypeID
	name        string
	description string

	mu        sync.RWMutex
	entities  map[uuid.UUID]*Entity
	relations map[graph.RelationInstanceID]*Relation

	addedEntities    []*Entity
	removedEntities  []uuid.UUID
	addedRelations   []*Relation
	removedRelations []graph.RelationInstanceID
}

// FlowDiff is a snapshot of the pending membership changes.
type FlowDiff struct {
	AddedEntities    []*Entity
	RemovedEntities  []uuid.UUID
	AddedRelations   []*Relation
	RemovedRelations []graph.RelationInstanceID
}

// Empty reports whether the diff holds no changes.
func (d FlowDiff) Empty() bool {
	return len(d.AddedEntities) == 0 && len(d.RemovedEntities) == 0 &&
		len(d.AddedRelations) == 0 && len(d.RemovedRelations) == 0
}

// NewFlow creates a flow around its wrapper entity, which becomes the first
// member.
func NewFlow(w *Entity) *Flow {
	return &Flow{
		wrapper:     w,
		ty:          w.Type(),
		name:        w.Name(),
		description: w.Description(),
		entities:    map[uuid.UUID]*Entity{w.ID(): w},
		relations:   make(map[graph.RelationInstanceID]*Relation),
	}
}

// NewFlowFromInstance materializes a flat flow. It fails if the wrapper is
// not among the entities or if a relation references an entity that is not.
// A flow without a type takes the wrapper's.
func NewFlowFromInstance(fi graph.FlowInstance) (*Flow, error) {
	entities := make(map[uuid.UUID]*Entity, len(fi.Entities))
	for _, ei := range fi.Entities {
		entities[ei.ID] = NewEntityFromInstance(ei)
	}

	w, ok := entities[fi.ID]
	if !ok {
		return nil, &ConstructionError{Code: ErrCodeMissingWrapper, FlowID: fi.ID}
	}

	relations := make(map[graph.RelationInstanceID]*Relation, len(fi.Relations))
	for _, ri := range fi.Relations {
		out, ok := entities[ri.OutboundID]
		if !ok {
			return nil, &ConstructionError{
				Code:     ErrCodeMissingOutbound,
				FlowID:   fi.ID,
				EntityID: ri.OutboundID,
				Relation: ri.ID().String(),
			}
		}
		in, ok := entities[ri.InboundID]
		if !ok {
			return nil, &ConstructionError{
				Code:     ErrCodeMissingInbound,
				FlowID:   fi.ID,
				EntityID: ri.InboundID,
				Relation: ri.ID().String(),
			}
		}
		r := NewRelationFromInstance(out, in, ri)
		relations[r.ID()] = r
	}

	ty := fi.Type
	if ty.IsZero() {
		ty = w.Type()
	}

	return &Flow{
		wrapper:     w,
		ty:          ty,
		name:        fi.Name,
		description: fi.Description,
		entities:    entities,
		relations:   relations,
	}, nil
}

// Wrapper returns the wrapper entity.
func (f *Flow) Wrapper() *Entity { return f.wrapper }

// Type returns the flow type.
func (f *Flow) Type() graph.EntityTypeID { return f.ty }

// Name returns the flow name.
func (f *Flow) Name() string { return f.name }

// Description returns the flow description.
func (f *Flow) Description() string { return f.description }

// =============================================================================
// Entities
// =============================================================================

// HasEntity reports whether id is a member.
func (f *Flow) HasEntity(id uuid.UUID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.entities[id]
	return ok
}

// Entity returns the member entity with the given id.
func (f *Flow) Entity(id uuid.UUID) (*Entity, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.entities[id]
	return e, ok
}

// Entities returns the members ordered by id.
func (f *Flow) Entities() []*Entity {
	f.mu.RLock()
	out := make([]*Entity, 0, len(f.entities))
	for _, e := range f.entities {
		out = append(out, e)
	}
	f.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Entity) int {
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return out
}

// AddEntity adds a member. Adding an existing member changes nothing.
func (f *Flow) AddEntity(e *Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entities[e.ID()]; ok {
		return
	}
	f.entities[e.ID()] = e
	f.addedEntities = append(f.addedEntities, e)
}

// RemoveEntity removes a member. Removing a non-member or the wrapper
// changes nothing. Relations touching the entity are left alone.
func (f *Flow) RemoveEntity(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.wrapper.ID() {
		return
	}
	if _, ok := f.entities[id]; !ok {
		return
	}
	delete(f.entities, id)
	f.removedEntities = append(f.removedEntities, id)
}

// =============================================================================
// Relations
// =============================================================================

// HasRelation reports whether id is a member.
func (f *Flow) HasRelation(id graph.RelationInstanceID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.relations[id]
	return ok
}

// Relation returns the member relation with the given id.
func (f *Flow) Relation(id graph.RelationInstanceID) (*Relation, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.relations[id]
	return r, ok
}

// Relations returns the member relations ordered by textual id.
func (f *Flow) Relations() []*Relation {
	f.mu.RLock()
	out := make([]*Relation, 0, len(f.relations))
	for _, r := range f.relations {
		out = append(out, r)
	}
	f.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Relation) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// AddRelation adds a member relation. Adding an existing member changes
// nothing. The endpoints are not required to be members.
func (f *Flow) AddRelation(r *Relation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := r.ID()
	if _, ok := f.relations[id]; ok {
		return
	}
	f.relations[id] = r
	f.addedRelations = append(f.addedRelations, r)
}

// RemoveRelation removes a member relation. Removing a non-member changes
// nothing.
func (f *Flow) RemoveRelation(id graph.RelationInstanceID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.relations[id]; !ok {
		return
	}
	delete(f.relations, id)
	f.removedRelations = append(f.removedRelations, id)
}

// =============================================================================
// Propagation
// =============================================================================

// Tick re-broadcasts the properties of every member entity. Relations are
// not ticked directly.
func (f *Flow) Tick() {
	for _, e := range f.Entities() {
		e.Tick()
	}
}

// TickChecked re-broadcasts the mutable properties of every member entity.
func (f *Flow) TickChecked() {
	for _, e := range f.Entities() {
		e.TickChecked()
	}
}

// =============================================================================
// Diff tracking
// =============================================================================

// Diff returns a snapshot of the pending changes.
func (f *Flow) Diff() FlowDiff {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FlowDiff{
		AddedEntities:    slices.Clone(f.addedEntities),
		RemovedEntities:  slices.Clone(f.removedEntities),
		AddedRelations:   slices.Clone(f.addedRelations),
		RemovedRelations: slices.Clone(f.removedRelations),
	}
}

// Acknowledge drops the changes covered by d, a snapshot previously taken
// with Diff. Changes recorded after the snapshot stay pending.
func (f *Flow) Acknowledge(d FlowDiff) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedEntities = trimPrefix(f.addedEntities, len(d.AddedEntities))
	f.removedEntities = trimPrefix(f.removedEntities, len(d.RemovedEntities))
	f.addedRelations = trimPrefix(f.addedRelations, len(d.AddedRelations))
	f.removedRelations = trimPrefix(f.removedRelations, len(d.RemovedRelations))
}

// DiscardDiff drops every pending change. Used when the flow is deleted.
func (f *Flow) DiscardDiff() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedEntities = nil
	f.removedEntities = nil
	f.addedRelations = nil
	f.removedRelations = nil
}

func trimPrefix[T any](s []T, n int) []T {
	if n >= len(s) {
		return nil
	}
	return slices.Clone(s[n:])
}

// =============================================================================
// Conversion
// =============================================================================

// ToInstance returns the flat form with current property values.
func (f *Flow) ToInstance() graph.FlowInstance {
	entities := f.Entities()
	relations := f.Relations()

	fi := graph.FlowInstance{
		ID:          f.ID(),
		Type:        f.Type(),
		Name:        f.Name(),
		Description: f.Description(),
		Entities:    make([]graph.EntityInstance, 0, len(entities)),
		Relations:   make([]graph.RelationInstance, 0, len(relations)),
	}
	for _, e := range entities {
		fi.Entities = append(fi.Entities, e.ToInstance())
	}
	for _, r := range relations {
		fi.Relations = append(fi.Relations, r.ToInstance())
	}
	return fi
}

// MarshalJSON encodes the flat form.
func (f *Flow) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.ToInstance())
}

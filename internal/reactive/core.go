package reactive

import (
	"slices"
	"strings"
	"sync"

	"github.com/roach88/flowgraph/internal/frp"
	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

// core implements the capability surface shared by Entity and Relation.
type core[ID comparable] struct {
	properties *Properties[ID]

	compMu     sync.RWMutex
	components map[graph.ComponentTypeID]struct{}

	behavMu    sync.RWMutex
	behaviours map[graph.BehaviourTypeID]struct{}
}

func (c *core[ID]) init(props *Properties[ID], components []graph.ComponentTypeID, behaviours []graph.BehaviourTypeID) {
	c.properties = props
	c.components = make(map[graph.ComponentTypeID]struct{}, len(components))
	c.behaviours = make(map[graph.BehaviourTypeID]struct{}, len(behaviours))
	for _, ty := range components {
		c.components[ty] = struct{}{}
	}
	for _, ty := range behaviours {
		c.behaviours[ty] = struct{}{}
	}
}

// Properties returns the property container.
func (c *core[ID]) Properties() *Properties[ID] { return c.properties }

// Property returns the named property cell.
func (c *core[ID]) Property(name string) (*Property[ID], bool) {
	return c.properties.Get(name)
}

// =============================================================================
// Getters
// =============================================================================

func (c *core[ID]) Get(name string) (value.Value, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.Get(), true
	}
	return nil, false
}

func (c *core[ID]) AsBool(name string) (bool, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsBool()
	}
	return false, false
}

func (c *core[ID]) AsI64(name string) (int64, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsI64()
	}
	return 0, false
}

func (c *core[ID]) AsU64(name string) (uint64, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsU64()
	}
	return 0, false
}

func (c *core[ID]) AsF64(name string) (float64, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsF64()
	}
	return 0, false
}

func (c *core[ID]) AsString(name string) (string, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsString()
	}
	return "", false
}

func (c *core[ID]) AsArray(name string) (value.Array, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsArray()
	}
	return nil, false
}

func (c *core[ID]) AsObject(name string) (value.Object, bool) {
	if p, ok := c.properties.Get(name); ok {
		return p.AsObject()
	}
	return nil, false
}

// =============================================================================
// Setters
// =============================================================================

func (c *core[ID]) Set(name string, v value.Value) {
	if p, ok := c.properties.Get(name); ok {
		p.Set(v)
	}
}

func (c *core[ID]) SetChecked(name string, v value.Value) {
	if p, ok := c.properties.Get(name); ok {
		p.SetChecked(v)
	}
}

func (c *core[ID]) SetNoPropagate(name string, v value.Value) {
	if p, ok := c.properties.Get(name); ok {
		p.SetNoPropagate(v)
	}
}

func (c *core[ID]) SetNoPropagateChecked(name string, v value.Value) {
	if p, ok := c.properties.Get(name); ok {
		p.SetNoPropagateChecked(v)
	}
}

func (c *core[ID]) Send(name string, v value.Value) {
	if p, ok := c.properties.Get(name); ok {
		p.Send(v)
	}
}

// =============================================================================
// Property set
// =============================================================================

func (c *core[ID]) HasProperty(name string) bool {
	return c.properties.Has(name)
}

// AddProperty creates a property unless the name exists (first writer wins).
func (c *core[ID]) AddProperty(name string, mutability graph.Mutability, v value.Value) bool {
	return c.properties.Add(name, mutability, v)
}

// RemoveProperty deletes the named property. Its subscribers stay attached
// to the removed cell.
func (c *core[ID]) RemoveProperty(name string) bool {
	_, ok := c.properties.Remove(name)
	return ok
}

func (c *core[ID]) SetPropertyMutability(name string, m graph.Mutability) bool {
	p, ok := c.properties.Get(name)
	if ok {
		p.SetMutability(m)
	}
	return ok
}

func (c *core[ID]) PropertyNames() []string {
	return c.properties.Names()
}

func (c *core[ID]) PropertyInstances() graph.PropertyInstances {
	return c.properties.Instances()
}

// Tick re-broadcasts every stored property value.
func (c *core[ID]) Tick() {
	c.properties.Each((*Property[ID]).Tick)
}

// TickChecked re-broadcasts every mutable property value.
func (c *core[ID]) TickChecked() {
	c.properties.Each((*Property[ID]).TickChecked)
}

// =============================================================================
// Observers
// =============================================================================

func (c *core[ID]) Observe(name string, fn func(value.Value)) (frp.Handle, bool) {
	p, ok := c.properties.Get(name)
	if !ok {
		return frp.Handle{}, false
	}
	return p.Stream().Observe(fn), true
}

func (c *core[ID]) ObserveWithHandle(name string, fn func(value.Value), h frp.Handle) bool {
	p, ok := c.properties.Get(name)
	if ok {
		p.Stream().ObserveWithHandle(fn, h)
	}
	return ok
}

func (c *core[ID]) RemoveObserver(name string, h frp.Handle) {
	if p, ok := c.properties.Get(name); ok {
		p.Stream().Remove(h)
	}
}

func (c *core[ID]) RemoveObservers(name string) {
	if p, ok := c.properties.Get(name); ok {
		p.Stream().Clear()
	}
}

func (c *core[ID]) RemoveAllObservers() {
	c.properties.Each(func(p *Property[ID]) {
		p.Stream().Clear()
	})
}

// =============================================================================
// Components
// =============================================================================

func (c *core[ID]) AddComponent(ty graph.ComponentTypeID) {
	c.compMu.Lock()
	defer c.compMu.Unlock()
	c.components[ty] = struct{}{}
}

// AddComponentWithProperties applies the component and creates each declared
// property that is not present yet, initialized to its declared default.
// Existing properties keep their value.
func (c *core[ID]) AddComponentWithProperties(comp *graph.Component) {
	c.AddComponent(comp.Type)
	for _, pt := range comp.Properties {
		c.properties.Add(pt.Name, pt.Mutability, pt.DefaultValue())
	}
}

// RemoveComponent removes the marker only. Properties the component added
// stay in place.
func (c *core[ID]) RemoveComponent(ty graph.ComponentTypeID) {
	c.compMu.Lock()
	defer c.compMu.Unlock()
	delete(c.components, ty)
}

func (c *core[ID]) IsA(ty graph.ComponentTypeID) bool {
	c.compMu.RLock()
	defer c.compMu.RUnlock()
	_, ok := c.components[ty]
	return ok
}

// Components returns the applied components in sorted order, nil if there
// are none.
func (c *core[ID]) Components() []graph.ComponentTypeID {
	c.compMu.RLock()
	var out []graph.ComponentTypeID
	for ty := range c.components {
		out = append(out, ty)
	}
	c.compMu.RUnlock()
	slices.SortFunc(out, func(a, b graph.ComponentTypeID) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// =============================================================================
// Behaviours
// =============================================================================

func (c *core[ID]) AddBehaviour(ty graph.BehaviourTypeID) {
	c.behavMu.Lock()
	defer c.behavMu.Unlock()
	c.behaviours[ty] = struct{}{}
}

func (c *core[ID]) RemoveBehaviour(ty graph.BehaviourTypeID) {
	c.behavMu.Lock()
	defer c.behavMu.Unlock()
	delete(c.behaviours, ty)
}

func (c *core[ID]) Behaves(ty graph.BehaviourTypeID) bool {
	c.behavMu.RLock()
	defer c.behavMu.RUnlock()
	_, ok := c.behaviours[ty]
	return ok
}

// Behaviours returns the attached behaviours in sorted order.
func (c *core[ID]) Behaviours() []graph.BehaviourTypeID {
	c.behavMu.RLock()
	var out []graph.BehaviourTypeID
	for ty := range c.behaviours {
		out = append(out, ty)
	}
	c.behavMu.RUnlock()
	slices.SortFunc(out, func(a, b graph.BehaviourTypeID) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

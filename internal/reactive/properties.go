package reactive

import (
	"slices"
	"strings"
	"sync"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

// Properties maps property names to the properties of one owner.
type Properties[ID comparable] struct {
	ownerID ID

	mu    sync.RWMutex
	props map[string]*Property[ID]
}

// NewProperties creates an empty container for ownerID.
func NewProperties[ID comparable](ownerID ID) *Properties[ID] {
	return &Properties[ID]{
		ownerID: ownerID,
		props:   make(map[string]*Property[ID]),
	}
}

// NewPropertiesFromInstances creates one mutable property per entry.
func NewPropertiesFromInstances[ID comparable](ownerID ID, instances graph.PropertyInstances) *Properties[ID] {
	c := &Properties[ID]{
		ownerID: ownerID,
		props:   make(map[string]*Property[ID], len(instances)),
	}
	for name, v := range instances {
		c.props[name] = NewProperty(ownerID, name, graph.Mutable, v)
	}
	return c
}

// OwnerID returns the owner of every property in the container.
func (c *Properties[ID]) OwnerID() ID { return c.ownerID }

// Add creates a property unless one with the same name exists.
// Reports whether the property was added.
func (c *Properties[ID]) Add(name string, mutability graph.Mutability, v value.Value) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.props[name]; ok {
		return false
	}
	c.props[name] = NewProperty(c.ownerID, name, mutability, v)
	return true
}

// Insert adds an existing property unless the name is taken.
// Reports whether the property was inserted.
func (c *Properties[ID]) Insert(p *Property[ID]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.props[p.Name()]; ok {
		return false
	}
	c.props[p.Name()] = p
	return true
}

// Remove deletes the named property and returns it.
func (c *Properties[ID]) Remove(name string) (*Property[ID], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.props[name]
	if ok {
		delete(c.props, name)
	}
	return p, ok
}

// Get returns the named property.
func (c *Properties[ID]) Get(name string) (*Property[ID], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.props[name]
	return p, ok
}

// Has reports whether the named property exists.
func (c *Properties[ID]) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Len returns the number of properties.
func (c *Properties[ID]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.props)
}

// Names returns the property names in sorted order.
func (c *Properties[ID]) Names() []string {
	c.mu.RLock()
	names := make([]string, 0, len(c.props))
	for name := range c.props {
		names = append(names, name)
	}
	c.mu.RUnlock()
	slices.Sort(names)
	return names
}

// All returns the properties sorted by name.
func (c *Properties[ID]) All() []*Property[ID] {
	c.mu.RLock()
	out := make([]*Property[ID], 0, len(c.props))
	for _, p := range c.props {
		out = append(out, p)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Property[ID]) int {
		return strings.Compare(a.name, b.name)
	})
	return out
}

// Each calls fn for every property in name order. The container lock is
// not held while fn runs.
func (c *Properties[ID]) Each(fn func(*Property[ID])) {
	for _, p := range c.All() {
		fn(p)
	}
}

// Instances returns the current values as flat property instances.
func (c *Properties[ID]) Instances() graph.PropertyInstances {
	out := make(graph.PropertyInstances, c.Len())
	c.Each(func(p *Property[ID]) {
		out[p.Name()] = p.Get()
	})
	return out
}

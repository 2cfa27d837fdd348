package reactive

import (
	"sync"
	"sync/atomic"

	"github.com/roach88/flowgraph/internal/frp"
	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

// Property is a named, observable value cell owned by an entity or relation.
//
// The owner id is a back-reference only; the property does not keep its
// owner alive.
type Property[ID comparable] struct {
	ownerID    ID
	name       string
	mutability atomic.Int32

	mu    sync.RWMutex
	value value.Value

	stream *frp.Stream[value.Value]
}

// NewProperty creates a property holding a copy of v.
func NewProperty[ID comparable](ownerID ID, name string, mutability graph.Mutability, v value.Value) *Property[ID] {
	p := &Property[ID]{
		ownerID: ownerID,
		name:    name,
		value:   value.Clone(v),
		stream:  frp.New[value.Value](),
	}
	p.mutability.Store(int32(mutability))
	return p
}

// OwnerID returns the id of the owning entity or relation.
func (p *Property[ID]) OwnerID() ID { return p.ownerID }

// Name returns the property name.
func (p *Property[ID]) Name() string { return p.name }

// Mutability returns the current mutability.
func (p *Property[ID]) Mutability() graph.Mutability {
	return graph.Mutability(p.mutability.Load())
}

// SetMutability reassigns the mutability.
func (p *Property[ID]) SetMutability(m graph.Mutability) {
	p.mutability.Store(int32(m))
}

// IsMutable reports whether checked writes are accepted.
func (p *Property[ID]) IsMutable() bool {
	return p.Mutability() == graph.Mutable
}

// Stream returns the stream that carries the property's signals.
func (p *Property[ID]) Stream() *frp.Stream[value.Value] { return p.stream }

// Get returns a copy of the current value.
func (p *Property[ID]) Get() value.Value {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.Clone(p.value)
}

// store replaces the value with a copy of v.
func (p *Property[ID]) store(v value.Value) {
	v = value.Clone(v)
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()
}

// Set stores v and sends it to subscribers, regardless of mutability.
// Subscribers receive a copy distinct from the stored value.
func (p *Property[ID]) Set(v value.Value) {
	p.store(v)
	p.stream.Send(value.Clone(v))
}

// SetChecked is Set for mutable properties and a no-op otherwise.
func (p *Property[ID]) SetChecked(v value.Value) {
	if p.IsMutable() {
		p.Set(v)
	}
}

// SetNoPropagate stores v without notifying subscribers.
func (p *Property[ID]) SetNoPropagate(v value.Value) {
	p.store(v)
}

// SetNoPropagateChecked is SetNoPropagate for mutable properties and a no-op
// otherwise.
func (p *Property[ID]) SetNoPropagateChecked(v value.Value) {
	if p.IsMutable() {
		p.store(v)
	}
}

// Send broadcasts v without storing it.
func (p *Property[ID]) Send(v value.Value) {
	p.stream.Send(v)
}

// Tick re-broadcasts a copy of the stored value.
func (p *Property[ID]) Tick() {
	p.stream.Send(p.Get())
}

// TickChecked is Tick for mutable properties and a no-op otherwise.
func (p *Property[ID]) TickChecked() {
	if p.IsMutable() {
		p.Tick()
	}
}

// AsBool returns the value as a bool.
func (p *Property[ID]) AsBool() (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsBool(p.value)
}

// AsI64 returns the value as an int64.
func (p *Property[ID]) AsI64() (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsI64(p.value)
}

// AsU64 returns the value as a uint64.
func (p *Property[ID]) AsU64() (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsU64(p.value)
}

// AsF64 returns the value as a float64.
func (p *Property[ID]) AsF64() (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsF64(p.value)
}

// AsString returns the value as a string.
func (p *Property[ID]) AsString() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsString(p.value)
}

// AsArray returns a copy of the value as an array.
func (p *Property[ID]) AsArray() (value.Array, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsArray(p.value)
}

// AsObject returns a copy of the value as an object.
func (p *Property[ID]) AsObject() (value.Object, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.AsObject(p.value)
}

// Equal reports whether the stored value equals v.
func (p *Property[ID]) Equal(v value.Value) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return value.Equal(p.value, v)
}

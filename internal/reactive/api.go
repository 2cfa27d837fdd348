package reactive

import (
	"github.com/roach88/flowgraph/internal/frp"
	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

// PropertyGetter reads properties by name. A missing property or a type
// mismatch yields ok == false.
type PropertyGetter interface {
	Get(name string) (value.Value, bool)
	AsBool(name string) (bool, bool)
	AsI64(name string) (int64, bool)
	AsU64(name string) (uint64, bool)
	AsF64(name string) (float64, bool)
	AsString(name string) (string, bool)
	AsArray(name string) (value.Array, bool)
	AsObject(name string) (value.Object, bool)
}

// PropertySetter writes properties by name. Writes to a missing property
// are ignored.
type PropertySetter interface {
	Set(name string, v value.Value)
	SetChecked(name string, v value.Value)
	SetNoPropagate(name string, v value.Value)
	SetNoPropagateChecked(name string, v value.Value)
	Send(name string, v value.Value)
}

// PropertyContainer owns a mutable set of properties.
type PropertyContainer interface {
	PropertyGetter
	PropertySetter
	HasProperty(name string) bool
	AddProperty(name string, mutability graph.Mutability, v value.Value) bool
	RemoveProperty(name string) bool
	SetPropertyMutability(name string, m graph.Mutability) bool
	PropertyNames() []string
	PropertyInstances() graph.PropertyInstances
	Tick()
	TickChecked()
	Observe(name string, fn func(value.Value)) (frp.Handle, bool)
	ObserveWithHandle(name string, fn func(value.Value), h frp.Handle) bool
	RemoveObserver(name string, h frp.Handle)
	RemoveObservers(name string)
	RemoveAllObservers()
}

// ComponentContainer tracks the components applied to an instance.
type ComponentContainer interface {
	AddComponent(ty graph.ComponentTypeID)
	AddComponentWithProperties(c *graph.Component)
	RemoveComponent(ty graph.ComponentTypeID)
	IsA(ty graph.ComponentTypeID) bool
	Components() []graph.ComponentTypeID
}

// BehaviourContainer tracks the behaviour markers attached to an instance.
type BehaviourContainer interface {
	AddBehaviour(ty graph.BehaviourTypeID)
	RemoveBehaviour(ty graph.BehaviourTypeID)
	Behaves(ty graph.BehaviourTypeID) bool
	Behaviours() []graph.BehaviourTypeID
}

// Instance is the full capability surface shared by Entity, Relation and
// Flow.
type Instance interface {
	PropertyContainer
	ComponentContainer
	BehaviourContainer
}

// ComponentResolver looks up component definitions. It is implemented by
// type registries.
type ComponentResolver interface {
	Component(ty graph.ComponentTypeID) (*graph.Component, bool)
}

var (
	_ Instance = (*Entity)(nil)
	_ Instance = (*Relation)(nil)
	_ Instance = (*Flow)(nil)
)

// Package connector propagates a property of one entity into a property of
// another. A connector is a relation of type connector::Connector whose two
// properties name the connected entity properties.
package connector

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/flowgraph/internal/frp"
	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/reactive"
	"github.com/roach88/flowgraph/internal/value"
)

const (
	// Namespace is the namespace of the connector relation type.
	Namespace = "connector"
	// TypeName is the name of the connector relation type.
	TypeName = "Connector"

	// PropertyOutbound names the source property on the outbound entity.
	PropertyOutbound = "outbound_property_name"
	// PropertyInbound names the target property on the inbound entity.
	PropertyInbound = "inbound_property_name"
)

var (
	// RelationType is the relation type of every connector relation.
	RelationType = graph.NewRelationTypeID(Namespace, TypeName)
	// Behaviour marks a relation whose connector is currently connected.
	Behaviour = graph.NewBehaviourTypeID(Namespace, TypeName)
)

// ErrPropertyNotFound is returned by Connect when a named property is absent.
var ErrPropertyNotFound = errors.New("property not found")

// Func transforms a propagated value.
type Func func(value.Value) value.Value

// Identity propagates values unchanged.
func Identity(v value.Value) value.Value { return v }

// ToString propagates the JSON text of the value.
func ToString(v value.Value) value.Value {
	b, err := value.Marshal(v)
	if err != nil {
		return value.Null{}
	}
	return value.String(b)
}

// ParseInt propagates a decimal string as an integer. Anything else becomes
// null.
func ParseInt(v value.Value) value.Value {
	s, ok := value.AsString(v)
	if !ok {
		return value.Null{}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return value.Null{}
	}
	return value.Int(n)
}

var funcs = map[string]Func{
	"default":   Identity,
	"to_string": ToString,
	"parse_int": ParseInt,
}

// Lookup returns a named transform: "default", "to_string" or "parse_int".
func Lookup(name string) (Func, bool) {
	if name == "" {
		return Identity, true
	}
	fn, ok := funcs[name]
	return fn, ok
}

// Connector wraps a connector relation. While connected, every signal on the
// outbound property is transformed and written to the inbound property with
// Set, so it propagates further.
type Connector struct {
	relation *reactive.Relation
	fn       Func

	mu     sync.Mutex
	handle frp.Handle
	source *reactive.Property[uuid.UUID]
}

// New creates a connector relation between outboundProp on outbound and
// inboundProp on inbound and connects it with the identity transform.
func New(outbound *reactive.Entity, outboundProp string, inbound *reactive.Entity, inboundProp string) (*Connector, error) {
	return FromRelation(NewRelation(outbound, outboundProp, inbound, inboundProp), Identity)
}

// NewRelation builds the relation New wraps, without connecting it.
func NewRelation(outbound *reactive.Entity, outboundProp string, inbound *reactive.Entity, inboundProp string) *reactive.Relation {
	ty := graph.NewRelationInstanceTypeID(RelationType, outboundProp+graph.InstanceSeparator+inboundProp)
	return reactive.NewRelation(outbound, ty, inbound, reactive.Values(map[string]any{
		PropertyOutbound: outboundProp,
		PropertyInbound:  inboundProp,
	}))
}

// FromRelation wraps an existing relation and connects it. A nil fn means
// Identity.
func FromRelation(rel *reactive.Relation, fn Func) (*Connector, error) {
	if fn == nil {
		fn = Identity
	}
	c := &Connector{relation: rel, fn: fn}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Relation returns the wrapped relation.
func (c *Connector) Relation() *reactive.Relation { return c.relation }

// Connect subscribes to the outbound property. Connecting a connected
// connector does nothing.
func (c *Connector) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source != nil {
		return nil
	}

	outName, ok := c.relation.AsString(PropertyOutbound)
	if !ok {
		return fmt.Errorf("connector %s: %s: %w", c.relation, PropertyOutbound, ErrPropertyNotFound)
	}
	inName, ok := c.relation.AsString(PropertyInbound)
	if !ok {
		return fmt.Errorf("connector %s: %s: %w", c.relation, PropertyInbound, ErrPropertyNotFound)
	}
	source, ok := c.relation.Outbound().Property(outName)
	if !ok {
		return fmt.Errorf("connector %s: outbound %q: %w", c.relation, outName, ErrPropertyNotFound)
	}
	target, ok := c.relation.Inbound().Property(inName)
	if !ok {
		return fmt.Errorf("connector %s: inbound %q: %w", c.relation, inName, ErrPropertyNotFound)
	}

	fn := c.fn
	c.handle = frp.NewHandle()
	c.source = source
	source.Stream().ObserveWithHandle(func(v value.Value) {
		target.Set(fn(v))
	}, c.handle)
	c.relation.AddBehaviour(Behaviour)
	return nil
}

// Disconnect removes the subscription. Disconnecting a disconnected
// connector does nothing.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil {
		return
	}
	c.source.Stream().Remove(c.handle)
	c.source = nil
	c.relation.RemoveBehaviour(Behaviour)
}

// Connected reports whether the connector is subscribed.
func (c *Connector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source != nil
}

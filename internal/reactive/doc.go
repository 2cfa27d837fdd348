// Package reactive provides the live property graph: reactive properties,
// entities, relations and flows.
//
// Every property value sits in a Property cell with its own frp.Stream.
// Writing a property optionally sends the new value down the stream, and
// whatever is chained off that stream recomputes synchronously before the
// write returns. That is how a change propagates across the graph.
//
// Entity, Relation and Flow expose the same capability surface (see
// PropertyContainer, ComponentContainer and BehaviourContainer) so callers
// never need to know which kind of object they hold. A Flow presents its
// wrapper entity to the outside.
//
// Runtime operations are total: a missing property, a type mismatch or a
// write to an immutable property is a no-op or a false ok, never an error.
// Only Flow construction from flat data can fail (see ConstructionError).
//
// Thread-safety: all types are safe for concurrent use. Each property guards
// its value with its own lock, released before propagation starts. Two
// properties are never locked together.
package reactive

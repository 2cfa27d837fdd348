// Package graph provides the flat data forms of the property graph.
//
// These types are what registries and persistence exchange with the reactive
// layer: type identifiers, property declarations, components, entity and
// relation types, and entity/relation/flow instances. They carry no
// behaviour of their own and are safe to copy.
//
// All JSON and YAML tags use snake_case.
package graph

// Package value provides the dynamic value type carried by every property.
//
// A property's declared data type is advisory: the graph allows components to
// add properties at runtime, so values stay dynamically typed. Accessors are
// total and report a type mismatch through their second return value.
//
// This package imports nothing internal.
package value

package value

import (
	"math"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the dynamic property value types.
// Only Null, Bool, Int, Uint, Float, String, Array and Object implement it.
//
// Numbers follow JSON number semantics: integers that fit in int64 are Int,
// larger non-negative integers are Uint, everything else is Float.
type Value interface {
	value() // Sealed
}

// Null represents a JSON null.
type Null struct{}

func (Null) value() {}

// Bool represents a boolean.
type Bool bool

func (Bool) value() {}

// Int represents a signed integer.
type Int int64

func (Int) value() {}

// Uint represents an unsigned integer above math.MaxInt64.
// Smaller unsigned values are normalized to Int by Of and Unmarshal.
type Uint uint64

func (Uint) value() {}

// Float represents a non-integer number.
type Float float64

func (Float) value() {}

// String represents a string.
type String string

func (String) value() {}

// Array represents an ordered list of values.
type Array []Value

func (Array) value() {}

// Object represents a map of string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Of converts a Go native value into a Value.
// Unsupported types (including nil) become Null.
func Of(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case bool:
		return Bool(val)
	case int:
		return Int(val)
	case int8:
		return Int(val)
	case int16:
		return Int(val)
	case int32:
		return Int(val)
	case int64:
		return Int(val)
	case uint:
		return ofUint(uint64(val))
	case uint8:
		return Int(val)
	case uint16:
		return Int(val)
	case uint32:
		return Int(val)
	case uint64:
		return ofUint(val)
	case float32:
		return Float(val)
	case float64:
		return Float(val)
	case string:
		return String(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = Of(elem)
		}
		return arr
	case []Value:
		return Array(val)
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			obj[k] = Of(elem)
		}
		return obj
	case map[string]Value:
		return Object(val)
	default:
		return Null{}
	}
}

func ofUint(n uint64) Value {
	if n <= math.MaxInt64 {
		return Int(int64(n))
	}
	return Uint(n)
}

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether a and b are deeply equal.
// Numbers compare by numeric value across Int, Uint and Float.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Int, Uint, Float:
		return numberEqual(a, b)
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func numberEqual(a, b Value) bool {
	if ai, ok := AsI64(a); ok {
		if bi, ok := AsI64(b); ok {
			return ai == bi
		}
	}
	if au, ok := AsU64(a); ok {
		if bu, ok := AsU64(b); ok {
			return au == bu
		}
	}
	af, aok := AsF64(a)
	bf, bok := AsF64(b)
	if !aok || !bok {
		return false
	}
	_, aFloat := a.(Float)
	_, bFloat := b.(Float)
	if !aFloat && !bFloat {
		// Int vs Uint above MaxInt64 never match.
		return false
	}
	return af == bf
}

// Kind returns the JSON type name of v.
func Kind(v Value) string {
	switch v.(type) {
	case Bool:
		return "bool"
	case Int, Uint, Float:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// SortedKeys returns keys ordered by UTF-16 code units.
// Go's string comparison uses UTF-8 bytes, which orders some keys differently.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

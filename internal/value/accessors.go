package value

import "math"

// AsBool returns the boolean held by v.
func AsBool(v Value) (bool, bool) {
	b, ok := v.(Bool)
	return bool(b), ok
}

// AsI64 returns v as int64. Uint values are accepted when they fit.
// Floats are never converted.
func AsI64(v Value) (int64, bool) {
	switch n := v.(type) {
	case Int:
		return int64(n), true
	case Uint:
		if uint64(n) <= math.MaxInt64 {
			return int64(n), true
		}
	}
	return 0, false
}

// AsU64 returns v as uint64. Negative Int values and floats are rejected.
func AsU64(v Value) (uint64, bool) {
	switch n := v.(type) {
	case Int:
		if n >= 0 {
			return uint64(n), true
		}
	case Uint:
		return uint64(n), true
	}
	return 0, false
}

// AsF64 returns any number as float64.
func AsF64(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Uint:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}

// AsString returns the string held by v.
func AsString(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// AsArray returns a deep copy of the array held by v.
func AsArray(v Value) (Array, bool) {
	arr, ok := v.(Array)
	if !ok {
		return nil, false
	}
	return Clone(arr).(Array), true
}

// AsObject returns a deep copy of the object held by v.
func AsObject(v Value) (Object, bool) {
	obj, ok := v.(Object)
	if !ok {
		return nil, false
	}
	return Clone(obj).(Object), true
}

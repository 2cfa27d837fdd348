package frp

// Either holds exactly one of a left or a right value.
type Either[A, B any] struct {
	left    A
	right   B
	isRight bool
}

// Left wraps a left value.
func Left[A, B any](a A) Either[A, B] {
	return Either[A, B]{left: a}
}

// Right wraps a right value.
func Right[A, B any](b B) Either[A, B] {
	return Either[A, B]{right: b, isRight: true}
}

// IsLeft reports whether e holds a left value.
func (e Either[A, B]) IsLeft() bool { return !e.isRight }

// IsRight reports whether e holds a right value.
func (e Either[A, B]) IsRight() bool { return e.isRight }

// Left returns the left value and whether e holds one.
func (e Either[A, B]) Left() (A, bool) { return e.left, !e.isRight }

// Right returns the right value and whether e holds one.
func (e Either[A, B]) Right() (B, bool) { return e.right, e.isRight }

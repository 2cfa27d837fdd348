package frp

import "sync"

// Map forwards f(sig) for every signal of s.
func Map[In, Out any](s *Stream[In], f func(In) Out) *Stream[Out] {
	mapped := New[Out]()
	out := mapped.same()
	s.Observe(func(sig In) {
		out.Send(f(sig))
	})
	return mapped
}

// FilterMap forwards the output of f when f reports true.
func FilterMap[In, Out any](s *Stream[In], f func(In) (Out, bool)) *Stream[Out] {
	mapped := New[Out]()
	out := mapped.same()
	s.Observe(func(sig In) {
		if v, ok := f(sig); ok {
			out.Send(v)
		}
	})
	return mapped
}

// Filter forwards the signals that satisfy pred.
func (s *Stream[Sig]) Filter(pred func(Sig) bool) *Stream[Sig] {
	filtered := New[Sig]()
	out := filtered.same()
	s.Observe(func(sig Sig) {
		if pred(sig) {
			out.Send(sig)
		}
	})
	return filtered
}

// Fold keeps a running accumulator, starting at initial, and forwards it
// after every signal. The accumulator belongs to the fold subscriber.
func Fold[Sig, Acc any](s *Stream[Sig], initial Acc, f func(Acc, Sig) Acc) *Stream[Acc] {
	folded := New[Acc]()
	out := folded.same()

	var mu sync.Mutex
	acc := initial
	s.Observe(func(sig Sig) {
		mu.Lock()
		acc = f(acc, sig)
		next := acc
		mu.Unlock()
		out.Send(next)
	})
	return folded
}

// Merge forwards the signals of both s and rhs.
func (s *Stream[Sig]) Merge(rhs *Stream[Sig]) *Stream[Sig] {
	merged := New[Sig]()
	outSelf := merged.same()
	outRHS := merged.same()
	s.Observe(func(sig Sig) {
		outSelf.Send(sig)
	})
	rhs.Observe(func(sig Sig) {
		outRHS.Send(sig)
	})
	return merged
}

// MergeWith forwards the signals of s and the adapted signals of rhs.
func MergeWith[Sig, RHS any](s *Stream[Sig], rhs *Stream[RHS], adapter func(RHS) Sig) *Stream[Sig] {
	merged := New[Sig]()
	outSelf := merged.same()
	outRHS := merged.same()
	s.Observe(func(sig Sig) {
		outSelf.Send(sig)
	})
	rhs.Observe(func(sig RHS) {
		outRHS.Send(adapter(sig))
	})
	return merged
}

// Zip tags the signals of a as Left and those of b as Right.
func Zip[A, B any](a *Stream[A], b *Stream[B]) *Stream[Either[A, B]] {
	zipped := New[Either[A, B]]()
	outA := zipped.same()
	outB := zipped.same()
	a.Observe(func(sig A) {
		outA.Send(Left[A, B](sig))
	})
	b.Observe(func(sig B) {
		outB.Send(Right[A](sig))
	})
	return zipped
}

// Unzip splits a zipped stream: Left values go to the first stream, Right
// values to the second.
func Unzip[A, B any](s *Stream[Either[A, B]]) (*Stream[A], *Stream[B]) {
	left := New[A]()
	outLeft := left.same()
	right := New[B]()
	outRight := right.same()
	s.Observe(func(sig Either[A, B]) {
		if sig.isRight {
			outRight.Send(sig.right)
		} else {
			outLeft.Send(sig.left)
		}
	})
	return left, right
}

// Entangled builds two streams that feed each other: a signal on the first
// is passed to f and, when f reports true, sent on the second; g does the
// same in the other direction. Each direction borrows its target so the
// pair never keeps itself alive. Returning false from f or g is the only
// way to stop a signal bouncing between them; past that, the propagation
// budget applies.
func Entangled[A, B any](f func(A) (B, bool), g func(B) (A, bool)) (*Stream[A], *Stream[B]) {
	fs := New[A]()
	gs := New[B]()
	fsBack := fs.downgrade()
	gsBack := gs.downgrade()

	fs.Observe(func(sig A) {
		if out, ok := f(sig); ok {
			gsBack.Send(out)
		}
	})
	gs.Observe(func(sig B) {
		if out, ok := g(sig); ok {
			fsBack.Send(out)
		}
	})
	return fs, gs
}

// Recv sinks every signal of s into a new unbounded Receiver.
// Closing the receiver unregisters it from s.
func (s *Stream[Sig]) Recv() *Receiver[Sig] {
	r := newReceiver[Sig]()
	r.detach = func(h Handle) { s.Remove(h) }
	r.handle = s.Observe(func(sig Sig) {
		r.push(sig)
	})
	return r
}

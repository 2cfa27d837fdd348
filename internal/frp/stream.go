package frp

import (
	"sync"
	"weak"
)

// registry is the subscriber set shared by every stream that owns or
// borrows it.
type registry[Sig any] struct {
	mu   sync.RWMutex
	subs map[Handle]func(Sig)
}

func newRegistry[Sig any]() *registry[Sig] {
	return &registry[Sig]{subs: make(map[Handle]func(Sig))}
}

func (r *registry[Sig]) put(h Handle, fn func(Sig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[h] = fn
}

func (r *registry[Sig]) remove(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, h)
}

func (r *registry[Sig]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.subs)
}

func (r *registry[Sig]) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// snapshot copies the subscribers so they can run without the lock held.
func (r *registry[Sig]) snapshot() []func(Sig) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.subs) == 0 {
		return nil
	}
	out := make([]func(Sig), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

// link is how a stream reaches its registry: owned or borrowed.
type link[Sig any] interface {
	resolve() *registry[Sig]
	share() link[Sig]
	borrow() link[Sig]
}

// owned keeps the registry alive.
type owned[Sig any] struct {
	reg *registry[Sig]
}

func (o owned[Sig]) resolve() *registry[Sig] { return o.reg }
func (o owned[Sig]) share() link[Sig]        { return o }
func (o owned[Sig]) borrow() link[Sig]       { return borrowed[Sig]{ref: weak.Make(o.reg)} }

// borrowed refers to a registry owned elsewhere. resolve returns nil once
// the registry has been collected.
type borrowed[Sig any] struct {
	ref weak.Pointer[registry[Sig]]
}

func (b borrowed[Sig]) resolve() *registry[Sig] { return b.ref.Value() }
func (b borrowed[Sig]) share() link[Sig]        { return b }
func (b borrowed[Sig]) borrow() link[Sig]       { return b }

// Stream broadcasts signals of type Sig to its subscribers.
//
// Subscribers receive the signal value as sent and must not mutate shared
// data reachable from it.
type Stream[Sig any] struct {
	deps link[Sig]
}

// New creates a stream that owns an empty registry.
func New[Sig any]() *Stream[Sig] {
	return &Stream[Sig]{deps: owned[Sig]{reg: newRegistry[Sig]()}}
}

// same returns a stream with the same ownership of the same registry.
func (s *Stream[Sig]) same() *Stream[Sig] {
	return &Stream[Sig]{deps: s.deps.share()}
}

// downgrade returns a stream borrowing the same registry.
func (s *Stream[Sig]) downgrade() *Stream[Sig] {
	return &Stream[Sig]{deps: s.deps.borrow()}
}

// Observe registers fn and returns its handle.
// On a borrowed stream whose registry is gone, nothing is registered.
func (s *Stream[Sig]) Observe(fn func(Sig)) Handle {
	h := NewHandle()
	s.ObserveWithHandle(fn, h)
	return h
}

// ObserveWithHandle registers fn under h, replacing any subscriber already
// registered under h.
func (s *Stream[Sig]) ObserveWithHandle(fn func(Sig), h Handle) {
	if reg := s.deps.resolve(); reg != nil {
		reg.put(h, fn)
	}
}

// Remove unregisters the subscriber under h.
func (s *Stream[Sig]) Remove(h Handle) {
	if reg := s.deps.resolve(); reg != nil {
		reg.remove(h)
	}
}

// Clear unregisters every subscriber.
func (s *Stream[Sig]) Clear() {
	if reg := s.deps.resolve(); reg != nil {
		reg.clear()
	}
}

// Len returns the number of registered subscribers.
func (s *Stream[Sig]) Len() int {
	if reg := s.deps.resolve(); reg != nil {
		return reg.size()
	}
	return 0
}

// Alive reports whether the stream still reaches its registry.
func (s *Stream[Sig]) Alive() bool {
	return s.deps.resolve() != nil
}

// Send invokes every registered subscriber with sig before returning.
// The subscriber set is the one registered when Send is entered.
func (s *Stream[Sig]) Send(sig Sig) {
	reg := s.deps.resolve()
	if reg == nil {
		return
	}
	subs := reg.snapshot()
	if len(subs) == 0 {
		return
	}
	if !enter() {
		return
	}
	defer leave()

	for _, fn := range subs {
		fn(sig)
	}
}

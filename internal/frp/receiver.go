package frp

import (
	"context"
	"errors"
	"sync"
)

// ErrReceiverClosed is returned by Receiver.Recv once the receiver is closed
// and drained.
var ErrReceiverClosed = errors.New("frp: receiver closed")

// Receiver buffers the signals of a stream for pull-based consumption.
//
// The buffer is unbounded so that a send never blocks the propagating
// goroutine. Signals are delivered in arrival order.
//
// The receiver uses a channel for signaling so that Recv can honor context
// cancellation.
type Receiver[Sig any] struct {
	mu     sync.Mutex
	items  []Sig
	closed bool
	signal chan struct{} // buffered, size 1

	handle Handle
	detach func(Handle)
}

func newReceiver[Sig any]() *Receiver[Sig] {
	return &Receiver[Sig]{
		items:  make([]Sig, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// push appends a signal. Returns false if the receiver is closed.
func (r *Receiver[Sig]) push(sig Sig) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.items = append(r.items, sig)

	// Non-blocking: the buffer of 1 coalesces wakeups.
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return true
}

// TryRecv returns the oldest buffered signal without blocking.
func (r *Receiver[Sig]) TryRecv() (Sig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero Sig
	if len(r.items) == 0 {
		return zero, false
	}
	sig := r.items[0]
	r.items[0] = zero // release references held by the backing array
	if len(r.items) == 1 {
		r.items = r.items[:0]
	} else {
		r.items = r.items[1:]
	}
	return sig, true
}

// Recv blocks until a signal is available, the receiver is closed and
// empty, or ctx is done.
func (r *Receiver[Sig]) Recv(ctx context.Context) (Sig, error) {
	for {
		if sig, ok := r.TryRecv(); ok {
			return sig, nil
		}

		r.mu.Lock()
		closed := r.closed
		r.mu.Unlock()
		if closed {
			var zero Sig
			return zero, ErrReceiverClosed
		}

		select {
		case <-ctx.Done():
			var zero Sig
			return zero, ctx.Err()
		case <-r.signal:
		}
	}
}

// Drain removes and returns every buffered signal.
func (r *Receiver[Sig]) Drain() []Sig {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items
	r.items = make([]Sig, 0, 16)
	return out
}

// Wait returns a channel that signals when signals may be available.
func (r *Receiver[Sig]) Wait() <-chan struct{} {
	return r.signal
}

// Len returns the number of buffered signals.
func (r *Receiver[Sig]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Close unregisters the receiver from its stream and wakes blocked callers.
// Buffered signals remain readable.
func (r *Receiver[Sig]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.signal)
	r.mu.Unlock()

	if r.detach != nil {
		r.detach(r.handle)
	}
}

package testutil

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// ID returns the deterministic UUID for n: the last eight bytes hold n in
// big-endian order, so ID(1) is 00000000-0000-0000-0000-000000000001.
func ID(n uint64) uuid.UUID {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], n)
	return id
}

// SequentialIDs generates ID(1), ID(2), ... in order.
//
// This enables deterministic test execution and golden trace comparison.
// The same scenario with the same generator produces byte-identical output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu   sync.Mutex
	next uint64
}

// NewSequentialIDs creates a generator whose first id is ID(1).
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{next: 1}
}

// NewID returns the next id. Implements graph.IDGenerator.
func (g *SequentialIDs) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ID(g.next)
	g.next++
	return id
}

// Reset restarts the sequence at ID(1).
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 1
}

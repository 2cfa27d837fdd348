package reactive

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/testutil"
	"github.com/roach88/flowgraph/internal/value"
)

func newTestProperty(m graph.Mutability, v value.Value) (*Property[string], *testutil.Recorder[value.Value]) {
	p := NewProperty("owner", "prop", m, v)
	rec := testutil.NewRecorder[value.Value]()
	p.Stream().Observe(rec.Record)
	return p, rec
}

// =============================================================================
// Writes
// =============================================================================

func TestProperty_SetPropagates(t *testing.T) {
	p, rec := newTestProperty(graph.Mutable, value.Int(0))

	p.Set(value.Int(5))

	assert.Equal(t, value.Int(5), p.Get())
	assert.Equal(t, []value.Value{value.Int(5)}, rec.Values())
}

func TestProperty_SetIgnoresMutability(t *testing.T) {
	p, rec := newTestProperty(graph.Immutable, value.Int(0))

	p.Set(value.Int(5))

	assert.Equal(t, value.Int(5), p.Get())
	assert.Equal(t, 1, rec.Len())
}

func TestProperty_ImmutableCheckedWrites(t *testing.T) {
	p, rec := newTestProperty(graph.Immutable, value.String("fixed"))

	p.SetChecked(value.String("changed"))
	p.SetNoPropagateChecked(value.String("changed"))
	p.TickChecked()

	assert.Equal(t, value.String("fixed"), p.Get())
	assert.Equal(t, 0, rec.Len())
}

func TestProperty_MutableCheckedWrites(t *testing.T) {
	p, rec := newTestProperty(graph.Mutable, value.Int(1))

	p.SetChecked(value.Int(2))
	p.SetNoPropagateChecked(value.Int(3))

	assert.Equal(t, value.Int(3), p.Get())
	assert.Equal(t, []value.Value{value.Int(2)}, rec.Values())
}

func TestProperty_SetNoPropagateThenTick(t *testing.T) {
	p, rec := newTestProperty(graph.Mutable, value.Int(0))

	p.SetNoPropagate(value.Int(7))

	assert.Equal(t, value.Int(7), p.Get())
	assert.Equal(t, 0, rec.Len(), "no subscriber runs")

	p.Tick()

	assert.Equal(t, []value.Value{value.Int(7)}, rec.Values())
}

func TestProperty_SendLeavesValue(t *testing.T) {
	p, rec := newTestProperty(graph.Mutable, value.Int(1))

	p.Send(value.Int(99))

	assert.Equal(t, value.Int(1), p.Get())
	assert.Equal(t, []value.Value{value.Int(99)}, rec.Values())
}

func TestProperty_SetMutability(t *testing.T) {
	p, _ := newTestProperty(graph.Mutable, value.Int(1))

	p.SetMutability(graph.Immutable)
	p.SetChecked(value.Int(2))

	assert.Equal(t, graph.Immutable, p.Mutability())
	assert.Equal(t, value.Int(1), p.Get())
}

func TestProperty_GetReturnsCopy(t *testing.T) {
	p, _ := newTestProperty(graph.Mutable, value.Array{value.Int(1)})

	got := p.Get().(value.Array)
	got[0] = value.Int(2)

	assert.Equal(t, value.Array{value.Int(1)}, p.Get())
}

func TestProperty_SetStoresCopy(t *testing.T) {
	p, _ := newTestProperty(graph.Mutable, value.Null{})

	in := value.Object{"k": value.Int(1)}
	p.Set(in)
	in["k"] = value.Int(2)

	assert.True(t, p.Equal(value.Object{"k": value.Int(1)}))
}

func TestProperty_SubscribersReceiveCopies(t *testing.T) {
	p := NewProperty("owner", "prop", graph.Mutable, value.Null{})
	p.Stream().Observe(func(v value.Value) {
		if arr, ok := v.(value.Array); ok {
			arr[0] = value.Int(99)
		}
	})

	p.Set(value.Array{value.Int(1)})
	assert.Equal(t, value.Array{value.Int(1)}, p.Get())

	p.Tick()
	assert.Equal(t, value.Array{value.Int(1)}, p.Get())
}

// =============================================================================
// Accessors
// =============================================================================

func TestProperty_Accessors(t *testing.T) {
	p := NewProperty("owner", "n", graph.Mutable, value.Int(42))

	i, ok := p.AsI64()
	require.True(t, ok)
	assert.Equal(t, int64(42), i)

	u, ok := p.AsU64()
	require.True(t, ok)
	assert.Equal(t, uint64(42), u)

	f, ok := p.AsF64()
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = p.AsBool()
	assert.False(t, ok)
	_, ok = p.AsString()
	assert.False(t, ok)
	_, ok = p.AsArray()
	assert.False(t, ok)
	_, ok = p.AsObject()
	assert.False(t, ok)

	assert.Equal(t, "owner", p.OwnerID())
	assert.Equal(t, "n", p.Name())
}

// =============================================================================
// Concurrency
// =============================================================================

func TestProperty_ConcurrentSet(t *testing.T) {
	p := NewProperty("owner", "counter", graph.Mutable, value.Int(-1))

	var calls atomic.Int64
	p.Stream().Observe(func(value.Value) { calls.Add(1) })

	const writers = 16
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if i%5 == 0 {
					p.Send(value.Int(int64(w*1000 + i)))
				} else {
					p.Set(value.Int(int64(w*1000 + i)))
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int64(writers*perWriter), calls.Load())

	final, ok := p.AsI64()
	require.True(t, ok)
	w, i := final/1000, final%1000
	assert.True(t, w >= 0 && w < writers, "final value %d was written by a writer", final)
	assert.NotZero(t, i%5, "final value %d came from a set, not a send", final)
}

// =============================================================================
// Container
// =============================================================================

func TestProperties_FromInstances(t *testing.T) {
	c := NewPropertiesFromInstances("owner", Values(map[string]any{"a": 1, "b": "x"}))

	assert.Equal(t, []string{"a", "b"}, c.Names())
	assert.Equal(t, 2, c.Len())

	p, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, graph.Mutable, p.Mutability())
	assert.Equal(t, "owner", p.OwnerID())
}

func TestProperties_AddFirstWriterWins(t *testing.T) {
	c := NewProperties("owner")

	assert.True(t, c.Add("x", graph.Mutable, value.Int(1)))
	assert.False(t, c.Add("x", graph.Immutable, value.Int(2)))

	p, _ := c.Get("x")
	assert.Equal(t, value.Int(1), p.Get())
	assert.Equal(t, graph.Mutable, p.Mutability())
}

func TestProperties_InsertAndRemove(t *testing.T) {
	c := NewProperties("owner")
	p := NewProperty("owner", "x", graph.Mutable, value.Int(1))

	assert.True(t, c.Insert(p))
	assert.False(t, c.Insert(NewProperty("owner", "x", graph.Mutable, value.Int(2))))

	removed, ok := c.Remove("x")
	require.True(t, ok)
	assert.Same(t, p, removed)
	assert.False(t, c.Has("x"))

	_, ok = c.Remove("x")
	assert.False(t, ok)
}

func TestProperties_Instances(t *testing.T) {
	c := NewPropertiesFromInstances("owner", Values(map[string]any{"a": true}))
	p, _ := c.Get("a")
	p.Set(value.Bool(false))

	assert.Equal(t, graph.PropertyInstances{"a": value.Bool(false)}, c.Instances())
}

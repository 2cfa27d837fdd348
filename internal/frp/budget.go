package frp

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/roach88/flowgraph/internal/metrics"
)

// DefaultMaxDepth is the default propagation depth budget.
const DefaultMaxDepth = 256

var maxDepth atomic.Int64

func init() {
	maxDepth.Store(DefaultMaxDepth)
}

// MaxDepth returns the maximum number of nested sends allowed on one
// goroutine.
func MaxDepth() int {
	return int(maxDepth.Load())
}

// SetMaxDepth sets the propagation depth budget and returns the previous
// value. Values below 1 are clamped to 1.
func SetMaxDepth(n int) int {
	if n < 1 {
		n = 1
	}
	return int(maxDepth.Swap(int64(n)))
}

// depths maps goroutine id to the number of sends in progress on it.
// Each entry is only touched by its own goroutine.
var depths sync.Map

// Depth returns the number of sends in progress on the calling goroutine.
func Depth() int {
	if d, ok := depths.Load(goroutineID()); ok {
		return *d.(*int)
	}
	return 0
}

// enter records a nested send. It returns false, and the signal must be
// dropped, when the budget is exhausted.
func enter() bool {
	gid := goroutineID()
	v, _ := depths.LoadOrStore(gid, new(int))
	d := v.(*int)

	limit := MaxDepth()
	if *d >= limit {
		metrics.Default().SignalsDropped.Inc()
		slog.Warn("propagation depth exceeded, signal dropped",
			"max_depth", limit,
			"goroutine", gid)
		return false
	}
	*d++
	recordPeak(*d)
	return true
}

// leave undoes enter.
func leave() {
	gid := goroutineID()
	v, ok := depths.Load(gid)
	if !ok {
		return
	}
	d := v.(*int)
	*d--
	if *d <= 0 {
		depths.Delete(gid)
	}
}

var peakDepth atomic.Int64

func recordPeak(d int) {
	for {
		cur := peakDepth.Load()
		if int64(d) <= cur {
			return
		}
		if peakDepth.CompareAndSwap(cur, int64(d)) {
			metrics.Default().PropagationPeak.Set(float64(d))
			return
		}
	}
}

// goroutineID parses the current goroutine id from the runtime stack header
// "goroutine <id> [...]".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

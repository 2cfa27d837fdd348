package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/metrics"
	"github.com/roach88/flowgraph/internal/reactive"
	"github.com/roach88/flowgraph/internal/testutil"
)

var (
	flowType  = graph.NewEntityTypeID("flow", "Generic")
	thingType = graph.NewEntityTypeID("test", "Thing")
	linkType  = graph.NewRelationInstanceTypeID(graph.NewRelationTypeID("test", "Link"), "")
)

// createTestStore creates a store in a temporary directory with its own
// collectors.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithMetrics(metrics.New())}, opts...)
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFlow creates a flow with wrapper ID(1) and members ID(2), ID(3)
// linked wrapper -> 2.
func createTestFlow() *reactive.Flow {
	w := reactive.NewEntity(flowType, testutil.ID(1), reactive.Values(map[string]any{"status": "idle"}))
	f := reactive.NewFlow(w)
	a := reactive.NewEntity(thingType, testutil.ID(2), reactive.Values(map[string]any{"n": 1}))
	b := reactive.NewEntity(thingType, testutil.ID(3), reactive.Values(map[string]any{"n": 2}))
	f.AddEntity(a)
	f.AddEntity(b)
	f.AddRelation(reactive.NewRelation(w, linkType, a, nil))
	return f
}

// spanRecorder is a tracer provider that records started span names.
type spanRecorder struct {
	noop.TracerProvider

	mu    sync.Mutex
	names []string
}

func (r *spanRecorder) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{rec: r}
}

func (r *spanRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

type recordingTracer struct {
	noop.Tracer
	rec *spanRecorder
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	t.rec.mu.Lock()
	t.rec.names = append(t.rec.names, name)
	t.rec.mu.Unlock()
	return t.Tracer.Start(ctx, name, opts...)
}

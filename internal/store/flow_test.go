package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/metrics"
	"github.com/roach88/flowgraph/internal/reactive"
	ftestutil "github.com/roach88/flowgraph/internal/testutil"
	"github.com/roach88/flowgraph/internal/value"
)

// =============================================================================
// CreateFlow
// =============================================================================

func TestCreateFlow_WritesSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()

	res, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Seq)
	assert.Equal(t, 3, res.EntitiesAdded)
	assert.Equal(t, 1, res.RelationsAdded)
	assert.NotEmpty(t, res.Digest)
	assert.True(t, f.Diff().Empty(), "the pending diff is acknowledged")

	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, f.ToInstance(), fi)
}

func TestCreateFlow_Exists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	_, err = s.CreateFlow(ctx, createTestFlow())

	assert.ErrorIs(t, err, ErrFlowExists)
}

// =============================================================================
// CommitFlow
// =============================================================================

func TestCommitFlow_AppliesDiff(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	c := reactive.NewEntity(thingType, ftestutil.ID(4), reactive.Values(map[string]any{"n": 4}))
	f.AddEntity(c)
	f.RemoveEntity(ftestutil.ID(3))
	f.AddRelation(reactive.NewRelation(f.Wrapper(), linkType, c, nil))
	f.Set("status", value.String("running"))

	res, err := s.CommitFlow(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Seq)
	assert.Equal(t, 1, res.EntitiesAdded)
	assert.Equal(t, 1, res.EntitiesRemoved)
	assert.Equal(t, 1, res.RelationsAdded)
	assert.True(t, f.Diff().Empty())

	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, f.ToInstance(), fi)
	assert.Equal(t, value.String("running"), fi.Entities[0].Properties["status"], "the wrapper is refreshed")
}

func TestCommitFlow_ReconcilesByFinalMembership(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	// removed then re-added: the entity stays
	e3, _ := f.Entity(ftestutil.ID(3))
	f.RemoveEntity(e3.ID())
	f.AddEntity(e3)
	// added then removed: the entity never lands
	e5 := reactive.NewEntity(thingType, ftestutil.ID(5), nil)
	f.AddEntity(e5)
	f.RemoveEntity(e5.ID())

	_, err = s.CommitFlow(ctx, f)
	require.NoError(t, err)

	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, f.ToInstance(), fi)
	require.Len(t, fi.Entities, 3)
}

func TestCommitFlow_RemovedRelation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	f.RemoveRelation(f.Relations()[0].ID())
	res, err := s.CommitFlow(ctx, f)
	require.NoError(t, err)

	assert.Equal(t, 1, res.RelationsRemoved)
	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	assert.Empty(t, fi.Relations)
}

func TestCommitFlow_KeepsDiffOnFailure(t *testing.T) {
	s := createTestStore(t)
	f := createTestFlow()

	_, err := s.CommitFlow(context.Background(), f)

	assert.ErrorIs(t, err, ErrFlowNotFound)
	assert.False(t, f.Diff().Empty(), "nothing is acknowledged when the commit fails")
}

func TestCommitFlow_DigestChain(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	first, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)
	second, err := s.CommitFlow(ctx, f)
	require.NoError(t, err)

	commits, err := s.Commits(ctx, f.ID())
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "", commits[0].ParentDigest)
	assert.Equal(t, first.Digest, commits[0].Digest)
	assert.Equal(t, first.Digest, commits[1].ParentDigest)
	assert.Equal(t, second.Digest, commits[1].Digest)
	assert.NotEqual(t, first.Digest, second.Digest, "the sequence number is part of the digest")
}

func TestCommitFlow_Metrics(t *testing.T) {
	m := metrics.New()
	s := createTestStore(t, WithMetrics(m))
	ctx := context.Background()
	f := createTestFlow()

	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)
	missing := reactive.NewFlow(reactive.NewEntity(flowType, ftestutil.ID(99), nil))
	_, err = s.CommitFlow(ctx, missing)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowCommits.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlowCommits.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DiffEntries.WithLabelValues("entity_added")))
}

// =============================================================================
// Reads
// =============================================================================

func TestLoadFlow_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadFlow(context.Background(), ftestutil.ID(9))

	assert.True(t, errors.Is(err, ErrFlowNotFound))
}

func TestLoadFlow_Reconstructs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	back, err := reactive.NewFlowFromInstance(fi)
	require.NoError(t, err)

	assert.Len(t, back.Entities(), 3)
	assert.Len(t, back.Relations(), 1)
	assert.Same(t, back.Wrapper(), back.Relations()[0].Outbound())
}

func TestLoadFlow_KeepsFlowIdentity(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	in := createTestFlow().ToInstance()
	in.Name = "my flow"
	in.Description = "desc"

	f, err := reactive.NewFlowFromInstance(in)
	require.NoError(t, err)
	_, err = s.CreateFlow(ctx, f)
	require.NoError(t, err)

	f.Wrapper().Set("status", value.String("busy"))
	_, err = s.CommitFlow(ctx, f)
	require.NoError(t, err)

	fi, err := s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)
	assert.Equal(t, "my flow", fi.Name)
	assert.Equal(t, "desc", fi.Description)
	assert.Equal(t, flowType, fi.Type)
	for _, e := range fi.Entities {
		if e.ID == f.ID() {
			assert.Empty(t, e.Name, "the wrapper keeps its own name")
		}
	}
}

func TestListFlows_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, n := range []uint64{12, 10, 11} {
		w := reactive.NewEntityFromInstance(graph.EntityInstance{Type: flowType, ID: ftestutil.ID(n)})
		_, err := s.CreateFlow(ctx, reactive.NewFlow(w))
		require.NoError(t, err)
	}

	flows, err := s.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 3)
	for i, n := range []uint64{10, 11, 12} {
		assert.Equal(t, ftestutil.ID(n), flows[i].ID)
	}
}

func TestListFlows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	flows, err := s.ListFlows(ctx)
	require.NoError(t, err)
	assert.Empty(t, flows)

	f := createTestFlow()
	_, err = s.CreateFlow(ctx, f)
	require.NoError(t, err)

	flows, err = s.ListFlows(ctx)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, FlowSummary{ID: f.ID(), Type: flowType, HeadSeq: 1, Entities: 3, Relations: 1}, flows[0])
}

func TestFlowsContaining(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFlow(ctx, createTestFlow())
	require.NoError(t, err)

	other := reactive.NewFlow(reactive.NewEntity(flowType, ftestutil.ID(10), nil))
	shared, _ := createTestFlow().Entity(ftestutil.ID(2))
	other.AddEntity(shared)
	_, err = s.CreateFlow(ctx, other)
	require.NoError(t, err)

	ids, err := s.FlowsContaining(ctx, ftestutil.ID(2))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ftestutil.ID(1), ftestutil.ID(10)}, ids)
}

func TestCommits_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Commits(context.Background(), ftestutil.ID(9))

	assert.ErrorIs(t, err, ErrFlowNotFound)
}

// =============================================================================
// DeleteFlow
// =============================================================================

func TestDeleteFlow_Cascades(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFlow()
	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFlow(ctx, f.ID()))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteFlow(ctx, f.ID()), ErrFlowNotFound)
}

// =============================================================================
// Tracing
// =============================================================================

func TestStore_Spans(t *testing.T) {
	rec := &spanRecorder{}
	s := createTestStore(t, WithTracerProvider(rec))
	ctx := context.Background()
	f := createTestFlow()

	_, err := s.CreateFlow(ctx, f)
	require.NoError(t, err)
	_, err = s.CommitFlow(ctx, f)
	require.NoError(t, err)
	_, err = s.LoadFlow(ctx, f.ID())
	require.NoError(t, err)

	assert.Equal(t, []string{"store.CreateFlow", "store.CommitFlow", "store.LoadFlow"}, rec.Names())
}

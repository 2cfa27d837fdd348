package reactive

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/testutil"
	"github.com/roach88/flowgraph/internal/value"
)

var testLink = graph.NewRelationInstanceTypeID(graph.NewRelationTypeID("test", "Link"), "")

func entityInstance(n uint64, props map[string]any) graph.EntityInstance {
	return graph.EntityInstance{
		Type:       testEntityType,
		ID:         testutil.ID(n),
		Properties: Values(props),
	}
}

// =============================================================================
// Relations
// =============================================================================

func TestRelation_Identity(t *testing.T) {
	out := NewEntity(testEntityType, testutil.ID(1), nil)
	in := NewEntity(testEntityType, testutil.ID(2), nil)
	ty := graph.NewRelationInstanceTypeID(graph.NewRelationTypeID("test", "Link"), "a__b")

	r := NewRelation(out, ty, in, Values(map[string]any{"weight": 1.5}))

	assert.Equal(t, graph.NewRelationInstanceID(out.ID(), ty, in.ID()), r.ID())
	assert.Equal(t, "a__b", r.InstanceID())
	assert.Equal(t, graph.NewRelationTypeID("test", "Link"), r.RelationTypeID())
	assert.Same(t, out, r.Outbound())
	assert.Same(t, in, r.Inbound())

	p, ok := r.Property("weight")
	require.True(t, ok)
	assert.Equal(t, r.ID(), p.OwnerID())

	assert.Equal(t,
		"00000000-0000-0000-0000-000000000001-[test::Link__a__b]->00000000-0000-0000-0000-000000000002",
		r.String())
}

func TestRelation_SharedEndpoints(t *testing.T) {
	hub := NewEntity(testEntityType, testutil.ID(1), Values(map[string]any{"v": 0}))
	a := NewEntity(testEntityType, testutil.ID(2), nil)
	b := NewEntity(testEntityType, testutil.ID(3), nil)

	r1 := NewRelation(hub, testLink, a, nil)
	r2 := NewRelation(hub, testLink, b, nil)

	hub.Set("v", value.Int(4))

	v1, _ := r1.Outbound().AsI64("v")
	v2, _ := r2.Outbound().AsI64("v")
	assert.Equal(t, int64(4), v1)
	assert.Equal(t, int64(4), v2)
}

func TestRelation_ToInstance(t *testing.T) {
	out := NewEntity(testEntityType, testutil.ID(1), nil)
	in := NewEntity(testEntityType, testutil.ID(2), nil)
	inst := graph.RelationInstance{
		OutboundID: out.ID(),
		Type:       testLink,
		InboundID:  in.ID(),
		Name:       "link",
		Properties: Values(map[string]any{"w": 1}),
		Components: []graph.ComponentTypeID{testComponent},
	}

	r := NewRelationFromInstance(out, in, inst)
	r.AddComponentWithProperties(positioned())

	got := r.ToInstance()
	assert.Equal(t, inst.ID(), got.ID())
	assert.Equal(t, []string{"w", "x", "y"}, got.Properties.Names())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"test::Link"`)
}

// =============================================================================
// Flow construction
// =============================================================================

func TestNewFlowFromInstance_MissingWrapper(t *testing.T) {
	fi := graph.FlowInstance{
		ID:       testutil.ID(1),
		Type:     testEntityType,
		Entities: []graph.EntityInstance{entityInstance(2, nil)},
	}

	_, err := NewFlowFromInstance(fi)

	require.Error(t, err)
	assert.True(t, IsMissingWrapper(err))
	assert.Contains(t, err.Error(), "MISSING_WRAPPER_INSTANCE")
}

func TestNewFlowFromInstance_MissingOutboundThenFixed(t *testing.T) {
	w := entityInstance(1, nil)
	fi := graph.NewFlowInstance(w)
	fi.Entities = append(fi.Entities, entityInstance(2, nil))
	fi.Relations = []graph.RelationInstance{{
		OutboundID: testutil.ID(3),
		Type:       testLink,
		InboundID:  testutil.ID(2),
	}}

	_, err := NewFlowFromInstance(fi)
	require.Error(t, err)
	assert.True(t, IsMissingOutbound(err))
	assert.False(t, IsMissingInbound(err))

	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, testutil.ID(3), ce.EntityID)

	fi.Entities = append(fi.Entities, entityInstance(3, nil))
	f, err := NewFlowFromInstance(fi)
	require.NoError(t, err)
	assert.Len(t, f.Relations(), 1)
	assert.True(t, f.Diff().Empty(), "construction records no diff")
}

func TestNewFlowFromInstance_MissingInbound(t *testing.T) {
	fi := graph.NewFlowInstance(entityInstance(1, nil))
	fi.Relations = []graph.RelationInstance{{
		OutboundID: testutil.ID(1),
		Type:       testLink,
		InboundID:  testutil.ID(9),
	}}

	_, err := NewFlowFromInstance(fi)
	assert.True(t, IsMissingInbound(err))
}

func TestNewFlowFromInstance_SharesEndpointEntities(t *testing.T) {
	fi := graph.NewFlowInstance(entityInstance(1, map[string]any{"v": 0}))
	fi.Entities = append(fi.Entities, entityInstance(2, nil))
	fi.Relations = []graph.RelationInstance{{OutboundID: testutil.ID(1), Type: testLink, InboundID: testutil.ID(2)}}

	f, err := NewFlowFromInstance(fi)
	require.NoError(t, err)

	r := f.Relations()[0]
	e, _ := f.Entity(testutil.ID(1))
	assert.Same(t, e, r.Outbound())
	assert.Same(t, f.Wrapper(), r.Outbound())
}

// =============================================================================
// Membership and diff
// =============================================================================

func newTestFlow() *Flow {
	return NewFlow(NewEntity(testEntityType, testutil.ID(1), Values(map[string]any{"status": "idle"})))
}

func TestFlow_WrapperIsMember(t *testing.T) {
	f := newTestFlow()

	assert.True(t, f.HasEntity(testutil.ID(1)))
	assert.Equal(t, testutil.ID(1), f.ID())

	f.RemoveEntity(testutil.ID(1))
	assert.True(t, f.HasEntity(testutil.ID(1)), "the wrapper cannot be removed")
	assert.True(t, f.Diff().Empty())
}

func TestFlow_AddRemoveRecordsOnlyChanges(t *testing.T) {
	f := newTestFlow()
	e := NewEntity(testEntityType, testutil.ID(2), nil)

	f.AddEntity(e)
	f.AddEntity(e)
	f.RemoveEntity(testutil.ID(2))
	f.RemoveEntity(testutil.ID(2))
	f.RemoveEntity(testutil.ID(7))

	d := f.Diff()
	assert.Equal(t, []*Entity{e}, d.AddedEntities)
	assert.Equal(t, []graph.RelationInstanceID(nil), d.RemovedRelations)
	assert.Len(t, d.RemovedEntities, 1)
	assert.False(t, f.HasEntity(testutil.ID(2)))
}

func TestFlow_Relations(t *testing.T) {
	f := newTestFlow()
	other := NewEntity(testEntityType, testutil.ID(2), nil)
	f.AddEntity(other)

	r := NewRelation(f.Wrapper(), testLink, other, nil)
	f.AddRelation(r)
	f.AddRelation(NewRelation(f.Wrapper(), testLink, other, nil))

	assert.True(t, f.HasRelation(r.ID()))
	got, ok := f.Relation(r.ID())
	require.True(t, ok)
	assert.Same(t, r, got, "a relation with the same identity is not added twice")

	f.RemoveRelation(r.ID())
	f.RemoveRelation(r.ID())

	d := f.Diff()
	assert.Len(t, d.AddedRelations, 1)
	assert.Equal(t, []graph.RelationInstanceID{r.ID()}, d.RemovedRelations)
}

func TestFlow_AcknowledgeKeepsLaterChanges(t *testing.T) {
	f := newTestFlow()
	f.AddEntity(NewEntity(testEntityType, testutil.ID(2), nil))

	snapshot := f.Diff()
	f.AddEntity(NewEntity(testEntityType, testutil.ID(3), nil))
	f.Acknowledge(snapshot)

	d := f.Diff()
	require.Len(t, d.AddedEntities, 1)
	assert.Equal(t, testutil.ID(3), d.AddedEntities[0].ID())

	f.Acknowledge(f.Diff())
	assert.True(t, f.Diff().Empty())
}

func TestFlow_DiscardDiff(t *testing.T) {
	f := newTestFlow()
	f.AddEntity(NewEntity(testEntityType, testutil.ID(2), nil))

	f.DiscardDiff()

	assert.True(t, f.Diff().Empty())
	assert.True(t, f.HasEntity(testutil.ID(2)), "discarding the diff keeps membership")
}

func TestFlow_AddRelationWithOutsideEndpoint(t *testing.T) {
	f := newTestFlow()
	outside := NewEntity(testEntityType, testutil.ID(5), nil)

	f.AddRelation(NewRelation(f.Wrapper(), testLink, outside, nil))

	assert.Len(t, f.Relations(), 1)
	assert.False(t, f.HasEntity(outside.ID()))
}

// =============================================================================
// Passthrough and propagation
// =============================================================================

func TestFlow_PassthroughIsWrapper(t *testing.T) {
	f := newTestFlow()

	f.Set("status", value.String("running"))
	f.AddComponent(testComponent)
	f.AddBehaviour(testBehaviour)

	s, _ := f.Wrapper().AsString("status")
	assert.Equal(t, "running", s)
	assert.True(t, f.Wrapper().IsA(testComponent))
	assert.True(t, f.Wrapper().Behaves(testBehaviour))
}

func TestFlow_TickTicksEveryEntity(t *testing.T) {
	f := newTestFlow()
	member := NewEntity(testEntityType, testutil.ID(2), Values(map[string]any{"v": 1}))
	f.AddEntity(member)

	rec := testutil.NewRecorder[value.Value]()
	f.Observe("status", rec.Record)
	member.Observe("v", rec.Record)

	f.Tick()

	assert.ElementsMatch(t, []value.Value{value.String("idle"), value.Int(1)}, rec.Values())
}

func TestFlow_ToInstanceRoundTrip(t *testing.T) {
	f := newTestFlow()
	other := NewEntity(testEntityType, testutil.ID(2), Values(map[string]any{"n": 1}))
	f.AddEntity(other)
	f.AddRelation(NewRelation(f.Wrapper(), testLink, other, nil))
	other.Set("n", value.Int(2))

	fi := f.ToInstance()
	assert.Equal(t, testutil.ID(1), fi.ID)
	require.Len(t, fi.Entities, 2)
	assert.Equal(t, value.Int(2), fi.Entities[1].Properties["n"])

	back, err := NewFlowFromInstance(fi)
	require.NoError(t, err)
	assert.Equal(t, fi, back.ToInstance())

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"relations":[`)
}

func TestFlow_KeepsOwnIdentity(t *testing.T) {
	fi := graph.FlowInstance{
		ID:          testutil.ID(1),
		Type:        graph.NewEntityTypeID("flow", "Generic"),
		Name:        "my flow",
		Description: "desc",
		Entities:    []graph.EntityInstance{entityInstance(1, nil)},
	}

	f, err := NewFlowFromInstance(fi)
	require.NoError(t, err)

	assert.Equal(t, "my flow", f.Name())
	assert.Equal(t, "desc", f.Description())
	assert.Equal(t, fi.Type, f.Type())
	assert.Empty(t, f.Wrapper().Name())
	assert.Equal(t, testEntityType, f.Wrapper().Type())

	back := f.ToInstance()
	assert.Equal(t, "my flow", back.Name)
	assert.Equal(t, "desc", back.Description)
	assert.Equal(t, fi.Type, back.Type)
}

func TestFlow_IdentityDefaultsToWrapper(t *testing.T) {
	w := NewEntityFromInstance(graph.EntityInstance{Type: testEntityType, ID: testutil.ID(1), Name: "outer"})
	assert.Equal(t, "outer", NewFlow(w).Name())

	f, err := NewFlowFromInstance(graph.FlowInstance{
		ID:       testutil.ID(1),
		Entities: []graph.EntityInstance{entityInstance(1, nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, testEntityType, f.Type())
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowgraph/internal/graph"
)

const minimalScenario = `
name: minimal
description: "One entity, one write"
entities:
  - name: a
    type: test::Cell
    properties: { value: 0 }
steps:
  - action: set
    target: a.value
    value: 1
assertions:
  - type: final_state
    target: a.value
    value: 1
`

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/chain.yaml")
	require.NoError(t, err)

	assert.Equal(t, "chain", s.Name)
	require.Len(t, s.Entities, 3)
	assert.Equal(t, "a", s.Entities[0].Name)
	assert.Equal(t, graph.NewEntityTypeID("test", "Cell"), s.Entities[0].Type)
	assert.Len(t, s.Connectors, 2)
	assert.Equal(t, "b.value", s.Connectors[0].To)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, ActionSet, s.Steps[0].Action)
	assert.Equal(t, "5", s.Steps[0].Value.Value)
	assert.Len(t, s.Assertions, 3)
	require.NotNil(t, s.Assertions[1].Count)
	assert.Equal(t, 1, *s.Assertions[1].Count)
}

func TestLoadScenario_ResolvesCatalog(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/gauge.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "catalog"), s.Catalog)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario+"assertion: []\n"), 0644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParse_Minimal(t *testing.T) {
	s, err := Parse([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Empty(t, s.Connectors)
}

func TestParse_Validation(t *testing.T) {
	entity := `
entities:
  - name: a
    type: test::Cell
    properties: { value: 0 }
`
	step := `
steps:
  - action: set
    target: a.value
    value: 1
`
	assertion := `
assertions:
  - type: final_state
    target: a.value
    value: 1
`
	head := "name: x\ndescription: d\n"

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "description: d\n" + entity + step + assertion, "name is required"},
		{"missing description", "name: x\n" + entity + step + assertion, "description is required"},
		{"no entities", head + step + assertion, "entities list is required"},
		{"no steps", head + entity + assertion, "steps list is required"},
		{"no assertions", head + entity + step, "assertions list is required"},
		{"negative depth", head + "max_depth: -1\n" + entity + step + assertion, "max_depth"},
		{"missing catalog", head + "catalog: testdata/none\n" + entity + step + assertion, "catalog not found"},
		{
			"duplicate entity",
			head + entity + "  - name: a\n    type: test::Cell\n" + step + assertion,
			`duplicate name "a"`,
		},
		{
			"dotted entity name",
			head + "entities:\n  - name: a.b\n    type: test::Cell\n" + step + assertion,
			"must not contain",
		},
		{
			"entity without type",
			head + "entities:\n  - name: a\n" + step + assertion,
			"type is required",
		},
		{
			"connector unknown entity",
			head + entity + "connectors:\n  - from: a.value\n    to: z.value\n" + step + assertion,
			`unknown entity "z"`,
		},
		{
			"connector unknown function",
			head + entity + "connectors:\n  - from: a.value\n    to: a.value\n    function: reverse\n" + step + assertion,
			`unknown function "reverse"`,
		},
		{
			"step without value",
			head + entity + "steps:\n  - action: set\n    target: a.value\n" + assertion,
			"value is required for set",
		},
		{
			"step bad target",
			head + entity + "steps:\n  - action: send\n    target: a\n    value: 1\n" + assertion,
			"must be entity.property",
		},
		{
			"step unknown action",
			head + entity + "steps:\n  - action: poke\n    target: a.value\n" + assertion,
			`unknown action "poke"`,
		},
		{
			"tick unknown entity",
			head + entity + "steps:\n  - action: tick\n    target: z\n" + assertion,
			`unknown entity "z"`,
		},
		{
			"count missing",
			head + entity + step + "assertions:\n  - type: trace_count\n    target: a.value\n",
			"count is required",
		},
		{
			"count negative",
			head + entity + step + "assertions:\n  - type: trace_count\n    target: a.value\n    count: -1\n",
			"count must be non-negative",
		},
		{
			"final state without value",
			head + entity + step + "assertions:\n  - type: final_state\n    target: a.value\n",
			"value is required for final_state",
		},
		{
			"unknown assertion",
			head + entity + step + "assertions:\n  - type: trace_order\n    target: a.value\n",
			`unknown assertion type "trace_order"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_TickTargets(t *testing.T) {
	src := `
name: ticks
description: "every tick target form"
entities:
  - name: a
    type: test::Cell
    properties: { value: 0 }
steps:
  - action: tick
  - action: tick
    target: a
  - action: tick_checked
    target: a.value
assertions:
  - type: trace_count
    target: a.value
    count: 3
`
	s, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Len(t, s.Steps, 3)
}

func TestSplitTarget(t *testing.T) {
	entity, prop, ok := splitTarget("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "a", entity)
	assert.Equal(t, "b.c", prop)

	for _, bad := range []string{"", "a", ".b", "a."} {
		_, _, ok := splitTarget(bad)
		assert.False(t, ok, bad)
	}
}

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

const pairID = "00000000-0000-0000-0000-000000000001"

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "flows.db")
}

func importPair(t *testing.T, db string, extra ...string) {
	t.Helper()
	args := append([]string{"import", "--db", db, "testdata/flows/pair.yaml"}, extra...)
	_, err := execute(t, args...)
	require.NoError(t, err)
}

// =============================================================================
// import
// =============================================================================

func TestImportCommand_YAML(t *testing.T) {
	out, err := execute(t, "import", "--db", tempDB(t), "testdata/flows/pair.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Imported flow "+pairID+" (3 entities, 1 relations)")
}

func TestImportCommand_JSONOutput(t *testing.T) {
	out, err := execute(t, "import", "--db", tempDB(t), "--format", "json", "testdata/flows/pair.yaml")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ImportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, pairID, resp.Data.FlowID.String())
	assert.Equal(t, 3, resp.Data.Entities)
	assert.Equal(t, 1, resp.Data.Relations)
	assert.NotEmpty(t, resp.Data.Digest)
}

func TestImportCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	noID := filepath.Join(dir, "noid.yaml")
	require.NoError(t, os.WriteFile(noID, []byte("type: flow::Generic\nentities: []\nrelations: []\n"), 0o644))
	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("id: "+pairID+"\ncolour: red\n"), 0o644))

	tests := []struct {
		name string
		file string
		code string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), ErrCodeNotFound},
		{"dangling relation", "testdata/flows/dangling.json", ErrCodeInvalid},
		{"missing id", noID, ErrCodeInvalid},
		{"unknown field", unknown, ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "import", "--db", tempDB(t), tt.file)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestImportCommand_Duplicate(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "import", "--db", db, "testdata/flows/pair.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeExists+"]")
}

func TestImportCommand_MaterializesCatalog(t *testing.T) {
	db := tempDB(t)
	importPair(t, db, "--catalog", meterCatalog)

	out, err := execute(t, "export", "--db", db, "--format", "json", pairID)
	require.NoError(t, err)

	var resp struct {
		Data graph.FlowInstance `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	var sensor graph.EntityInstance
	for _, e := range resp.Data.Entities {
		if e.Type == graph.NewEntityTypeID("meter", "Sensor") {
			sensor = e
		}
	}
	assert.Equal(t, value.Int(10), sensor.Properties.Get("limit"))
	assert.Equal(t, value.String("K"), sensor.Properties.Get("unit"), "stored values win over defaults")
	assert.Contains(t, sensor.Properties, "reading")
}

// =============================================================================
// export
// =============================================================================

func TestExportCommand_YAMLReimports(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "export", "--db", db, pairID)
	require.NoError(t, err)
	assert.Contains(t, out, "type: meter::Sensor")
	assert.Contains(t, out, "type: test::Link__a")

	file := filepath.Join(t.TempDir(), "exported.yaml")
	require.NoError(t, os.WriteFile(file, []byte(out), 0o644))

	_, err = execute(t, "import", "--db", tempDB(t), file)
	require.NoError(t, err)
}

func TestExportCommand_NotFound(t *testing.T) {
	out, err := execute(t, "export", "--db", tempDB(t), pairID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestExportCommand_InvalidID(t *testing.T) {
	out, err := execute(t, "export", "--db", tempDB(t), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeInvalid+"]")
}

// =============================================================================
// flows, commits, delete
// =============================================================================

func TestFlowsCommand(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "flows", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No flows stored.")

	importPair(t, db)

	out, err = execute(t, "flows", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, pairID)
	assert.Contains(t, out, "flow::Generic")
}

func TestFlowsCommand_JSON(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "flows", "--db", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			ID        string `json:"id"`
			HeadSeq   int64  `json:"head_seq"`
			Entities  int    `json:"entities"`
			Relations int    `json:"relations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, pairID, resp.Data[0].ID)
	assert.Equal(t, int64(1), resp.Data[0].HeadSeq)
	assert.Equal(t, 3, resp.Data[0].Entities)
	assert.Equal(t, 1, resp.Data[0].Relations)
}

func TestFlowsCommand_Entity(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "flows", "--db", db, "--entity", "00000000-0000-0000-0000-000000000003")
	require.NoError(t, err)
	assert.Contains(t, out, pairID)

	out, err = execute(t, "flows", "--db", db, "--entity", "00000000-0000-0000-0000-000000000009")
	require.NoError(t, err)
	assert.Contains(t, out, "No flows stored.")

	out, err = execute(t, "flows", "--db", db, "--entity", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeInvalid+"]")
}

func TestCommitsCommand(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "commits", "--db", db, "--format", "json", pairID)
	require.NoError(t, err)

	var resp struct {
		Data []struct {
			Seq            int64  `json:"seq"`
			EntitiesAdded  int    `json:"entities_added"`
			RelationsAdded int    `json:"relations_added"`
			ParentDigest   string `json:"parent_digest"`
			Digest         string `json:"digest"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(1), resp.Data[0].Seq)
	assert.Equal(t, 3, resp.Data[0].EntitiesAdded)
	assert.Equal(t, 1, resp.Data[0].RelationsAdded)
	assert.NotEmpty(t, resp.Data[0].Digest)

	out, err = execute(t, "commits", "--db", db, pairID)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, resp.Data[0].Digest)
}

func TestDeleteCommand(t *testing.T) {
	db := tempDB(t)
	importPair(t, db)

	out, err := execute(t, "delete", "--db", db, pairID)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deleted flow "+pairID)

	out, err = execute(t, "delete", "--db", db, pairID)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")

	out, err = execute(t, "commits", "--db", db, pairID)
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestImportCommand_KeepsFlowName(t *testing.T) {
	file := filepath.Join(t.TempDir(), "named.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`id: `+pairID+`
type: flow::Generic
name: outer flow
description: imported
entities:
  - type: flow::Generic
    id: `+pairID+`
relations: []
`), 0o644))

	db := tempDB(t)
	_, err := execute(t, "import", "--db", db, file)
	require.NoError(t, err)

	out, err := execute(t, "export", "--db", db, "--format", "json", pairID)
	require.NoError(t, err)

	var resp struct {
		Data graph.FlowInstance `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "outer flow", resp.Data.Name)
	assert.Equal(t, "imported", resp.Data.Description)
	require.Len(t, resp.Data.Entities, 1)
	assert.Empty(t, resp.Data.Entities[0].Name)
}

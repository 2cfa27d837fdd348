package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/value"
)

func encodeEntity(e graph.EntityInstance) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal entity %s: %w", e.ID, err)
	}
	return string(b), nil
}

func decodeEntity(data string) (graph.EntityInstance, error) {
	var e graph.EntityInstance
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return e, fmt.Errorf("unmarshal entity: %w", err)
	}
	return e, nil
}

func encodeRelation(r graph.RelationInstance) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal relation %s: %w", r.ID(), err)
	}
	return string(b), nil
}

func decodeRelation(data string) (graph.RelationInstance, error) {
	var r graph.RelationInstance
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return r, fmt.Errorf("unmarshal relation: %w", err)
	}
	return r, nil
}

// FlowDigest is the content digest of a flat flow: SHA-256 over its
// canonical JSON form.
func FlowDigest(fi graph.FlowInstance) (string, error) {
	b, err := json.Marshal(fi)
	if err != nil {
		return "", fmt.Errorf("marshal flow: %w", err)
	}
	v, err := value.Unmarshal(b)
	if err != nil {
		return "", fmt.Errorf("flow value: %w", err)
	}
	return value.Digest(value.DomainFlow, v)
}

// commitDigest chains a commit to its parent.
func commitDigest(parent string, seq int64, state string) (string, error) {
	return value.Digest(value.DomainCommit, value.Object{
		"parent": value.String(parent),
		"seq":    value.Int(seq),
		"state":  value.String(state),
	})
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/flowgraph/internal/graph"
)

// FlowSummary is one row of ListFlows.
type FlowSummary struct {
	ID        uuid.UUID          `json:"id"`
	Type      graph.EntityTypeID `json:"type"`
	Name      string             `json:"name,omitempty"`
	HeadSeq   int64              `json:"head_seq"`
	Entities  int                `json:"entities"`
	Relations int                `json:"relations"`
}

// Commit is one committed diff of a flow.
type Commit struct {
	FlowID           uuid.UUID `json:"flow_id"`
	Seq              int64     `json:"seq"`
	EntitiesAdded    int       `json:"entities_added"`
	EntitiesRemoved  int       `json:"entities_removed"`
	RelationsAdded   int       `json:"relations_added"`
	RelationsRemoved int       `json:"relations_removed"`
	ParentDigest     string    `json:"parent_digest"`
	Digest           string    `json:"digest"`
}

// LoadFlow reads the stored flat form of a flow. Entities are ordered by id
// and relations by their textual id, matching reactive.Flow.ToInstance.
func (s *Store) LoadFlow(ctx context.Context, id uuid.UUID) (fi graph.FlowInstance, err error) {
	ctx, span := s.start(ctx, "store.LoadFlow", flowAttr(id))
	defer func() { finish(span, err) }()

	fi, err = loadFlow(ctx, s.db, id)
	if err != nil {
		return fi, err
	}
	span.SetAttributes(
		attribute.Int("flowgraph.entities", len(fi.Entities)),
		attribute.Int("flowgraph.relations", len(fi.Relations)),
	)
	return fi, nil
}

func loadFlow(ctx context.Context, q querier, id uuid.UUID) (graph.FlowInstance, error) {
	fi := graph.FlowInstance{ID: id}

	var ty string
	err := q.QueryRowContext(ctx, `
		SELECT type, name, description FROM flows WHERE id = ?
	`, id).Scan(&ty, &fi.Name, &fi.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return fi, fmt.Errorf("load flow %s: %w", id, ErrFlowNotFound)
	}
	if err != nil {
		return fi, fmt.Errorf("load flow: %w", err)
	}
	if fi.Type, err = graph.ParseEntityTypeID(ty); err != nil {
		return fi, fmt.Errorf("load flow: %w", err)
	}

	fi.Entities, err = queryData(ctx, q, `
		SELECT data FROM entities WHERE flow_id = ? ORDER BY id COLLATE BINARY ASC
	`, id, decodeEntity)
	if err != nil {
		return fi, fmt.Errorf("load flow entities: %w", err)
	}
	fi.Relations, err = queryData(ctx, q, `
		SELECT data FROM relations WHERE flow_id = ? ORDER BY id COLLATE BINARY ASC
	`, id, decodeRelation)
	if err != nil {
		return fi, fmt.Errorf("load flow relations: %w", err)
	}
	return fi, nil
}

func queryData[T any](ctx context.Context, q querier, query string, id uuid.UUID, decode func(string) (T, error)) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		item, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListFlows returns every stored flow ordered by id.
func (s *Store) ListFlows(ctx context.Context) (flows []FlowSummary, err error) {
	ctx, span := s.start(ctx, "store.ListFlows")
	defer func() { finish(span, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.type, f.name, f.head_seq,
			(SELECT COUNT(*) FROM entities e WHERE e.flow_id = f.id),
			(SELECT COUNT(*) FROM relations r WHERE r.flow_id = f.id)
		FROM flows f
		ORDER BY f.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fs FlowSummary
		var ty string
		if err := rows.Scan(&fs.ID, &ty, &fs.Name, &fs.HeadSeq, &fs.Entities, &fs.Relations); err != nil {
			return nil, fmt.Errorf("list flows: scan: %w", err)
		}
		if fs.Type, err = graph.ParseEntityTypeID(ty); err != nil {
			return nil, fmt.Errorf("list flows: %w", err)
		}
		flows = append(flows, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	return flows, nil
}

// Commits returns the commit history of a flow, oldest first.
func (s *Store) Commits(ctx context.Context, id uuid.UUID) (commits []Commit, err error) {
	ctx, span := s.start(ctx, "store.Commits", flowAttr(id))
	defer func() { finish(span, err) }()

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flows WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("commits: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("commits of %s: %w", id, ErrFlowNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, seq, entities_added, entities_removed, relations_added, relations_removed, parent_digest, digest
		FROM commits
		WHERE flow_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("commits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.FlowID, &c.Seq, &c.EntitiesAdded, &c.EntitiesRemoved,
			&c.RelationsAdded, &c.RelationsRemoved, &c.ParentDigest, &c.Digest); err != nil {
			return nil, fmt.Errorf("commits: scan: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commits: %w", err)
	}
	return commits, nil
}

// FlowsContaining returns the ids of the stored flows that have entityID as
// a member, ordered by id.
func (s *Store) FlowsContaining(ctx context.Context, entityID uuid.UUID) (ids []uuid.UUID, err error) {
	ctx, span := s.start(ctx, "store.FlowsContaining", attribute.String("flowgraph.entity_id", entityID.String()))
	defer func() { finish(span, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id FROM entities WHERE id = ? ORDER BY flow_id COLLATE BINARY ASC
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("flows containing: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("flows containing: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

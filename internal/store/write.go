package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/roach88/flowgraph/internal/graph"
	"github.com/roach88/flowgraph/internal/reactive"
)

// CommitResult describes one committed diff.
type CommitResult struct {
	Seq              int64
	EntitiesAdded    int
	EntitiesRemoved  int
	RelationsAdded   int
	RelationsRemoved int
	Digest           string
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateFlow writes a full snapshot of a new flow as commit 1 and
// acknowledges its pending diff. Returns ErrFlowExists if the id is taken.
func (s *Store) CreateFlow(ctx context.Context, f *reactive.Flow) (res CommitResult, err error) {
	ctx, span := s.start(ctx, "store.CreateFlow", flowAttr(f.ID()))
	started := time.Now()
	defer func() {
		s.observeCommit(started, err)
		finish(span, err)
	}()

	d := f.Diff()
	fi := f.ToInstance()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("create flow: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM flows WHERE id = ?`, f.ID()).Scan(&exists)
	if err != nil {
		return res, fmt.Errorf("create flow: %w", err)
	}
	if exists > 0 {
		return res, fmt.Errorf("create flow %s: %w", f.ID(), ErrFlowExists)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flows (id, type, name, description)
		VALUES (?, ?, ?, ?)
	`, fi.ID, fi.Type.String(), fi.Name, fi.Description)
	if err != nil {
		return res, fmt.Errorf("create flow: insert: %w", err)
	}

	for _, e := range fi.Entities {
		if err := upsertEntity(ctx, tx, fi.ID, e); err != nil {
			return res, fmt.Errorf("create flow: %w", err)
		}
	}
	for _, r := range fi.Relations {
		if err := upsertRelation(ctx, tx, fi.ID, r); err != nil {
			return res, fmt.Errorf("create flow: %w", err)
		}
	}

	res = CommitResult{
		EntitiesAdded:  len(fi.Entities),
		RelationsAdded: len(fi.Relations),
	}
	if err := recordCommit(ctx, tx, fi.ID, &res); err != nil {
		return res, fmt.Errorf("create flow: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("create flow: commit: %w", err)
	}

	f.Acknowledge(d)
	s.countEntries(res)
	span.SetAttributes(attribute.Int64("flowgraph.commit_seq", res.Seq))
	return res, nil
}

// CommitFlow persists the pending diff of f in one transaction and
// acknowledges it once the transaction has committed. Changes made to f
// while the commit runs stay pending for the next commit.
//
// Each id in the diff is reconciled against the flow's current membership:
// members are written with their current state, non-members are deleted.
// The wrapper entity is always rewritten.
func (s *Store) CommitFlow(ctx context.Context, f *reactive.Flow) (res CommitResult, err error) {
	ctx, span := s.start(ctx, "store.CommitFlow", flowAttr(f.ID()))
	started := time.Now()
	defer func() {
		s.observeCommit(started, err)
		finish(span, err)
	}()

	d := f.Diff()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("commit flow: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE flows SET type = ?, name = ?, description = ? WHERE id = ?
	`, f.Type().String(), f.Name(), f.Description(), f.ID())
	if err != nil {
		return res, fmt.Errorf("commit flow: update: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return res, fmt.Errorf("commit flow: rows affected: %w", err)
	} else if n == 0 {
		return res, fmt.Errorf("commit flow %s: %w", f.ID(), ErrFlowNotFound)
	}

	for _, e := range d.AddedEntities {
		if err := reconcileEntity(ctx, tx, f, e.ID()); err != nil {
			return res, fmt.Errorf("commit flow: %w", err)
		}
	}
	for _, id := range d.RemovedEntities {
		if err := reconcileEntity(ctx, tx, f, id); err != nil {
			return res, fmt.Errorf("commit flow: %w", err)
		}
	}
	if err := upsertEntity(ctx, tx, f.ID(), f.Wrapper().ToInstance()); err != nil {
		return res, fmt.Errorf("commit flow: %w", err)
	}
	for _, r := range d.AddedRelations {
		if err := reconcileRelation(ctx, tx, f, r.ID()); err != nil {
			return res, fmt.Errorf("commit flow: %w", err)
		}
	}
	for _, id := range d.RemovedRelations {
		if err := reconcileRelation(ctx, tx, f, id); err != nil {
			return res, fmt.Errorf("commit flow: %w", err)
		}
	}

	res = CommitResult{
		EntitiesAdded:    len(d.AddedEntities),
		EntitiesRemoved:  len(d.RemovedEntities),
		RelationsAdded:   len(d.AddedRelations),
		RelationsRemoved: len(d.RemovedRelations),
	}
	if err := recordCommit(ctx, tx, f.ID(), &res); err != nil {
		return res, fmt.Errorf("commit flow: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit flow: commit: %w", err)
	}

	f.Acknowledge(d)
	s.countEntries(res)
	span.SetAttributes(attribute.Int64("flowgraph.commit_seq", res.Seq))
	slog.Debug("flow committed",
		"flow", f.ID(),
		"seq", res.Seq,
		"entities_added", res.EntitiesAdded,
		"entities_removed", res.EntitiesRemoved,
		"relations_added", res.RelationsAdded,
		"relations_removed", res.RelationsRemoved)
	return res, nil
}

// DeleteFlow removes a flow with its members and commits.
// Returns ErrFlowNotFound if there is no such flow.
func (s *Store) DeleteFlow(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := s.start(ctx, "store.DeleteFlow", flowAttr(id))
	defer func() { finish(span, err) }()

	result, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete flow: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete flow %s: %w", id, ErrFlowNotFound)
	}
	return nil
}

func reconcileEntity(ctx context.Context, q querier, f *reactive.Flow, id uuid.UUID) error {
	if e, ok := f.Entity(id); ok {
		return upsertEntity(ctx, q, f.ID(), e.ToInstance())
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM entities WHERE flow_id = ? AND id = ?`, f.ID(), id); err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	return nil
}

func reconcileRelation(ctx context.Context, q querier, f *reactive.Flow, id graph.RelationInstanceID) error {
	if r, ok := f.Relation(id); ok {
		return upsertRelation(ctx, q, f.ID(), r.ToInstance())
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM relations WHERE flow_id = ? AND id = ?`, f.ID(), id.String()); err != nil {
		return fmt.Errorf("delete relation %s: %w", id, err)
	}
	return nil
}

func upsertEntity(ctx context.Context, q querier, flowID uuid.UUID, e graph.EntityInstance) error {
	data, err := encodeEntity(e)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO entities (flow_id, id, type, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(flow_id, id) DO UPDATE SET type = excluded.type, data = excluded.data
	`, flowID, e.ID, e.Type.String(), data)
	if err != nil {
		return fmt.Errorf("write entity %s: %w", e.ID, err)
	}
	return nil
}

func upsertRelation(ctx context.Context, q querier, flowID uuid.UUID, r graph.RelationInstance) error {
	data, err := encodeRelation(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO relations (flow_id, id, outbound_id, inbound_id, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(flow_id, id) DO UPDATE SET data = excluded.data
	`, flowID, r.ID().String(), r.OutboundID, r.InboundID, data)
	if err != nil {
		return fmt.Errorf("write relation %s: %w", r.ID(), err)
	}
	return nil
}

// recordCommit appends the next commit row, chaining its digest to the
// flow head, and advances the head. res.Seq and res.Digest are filled in.
func recordCommit(ctx context.Context, q querier, flowID uuid.UUID, res *CommitResult) error {
	var head int64
	var parent string
	err := q.QueryRowContext(ctx, `SELECT head_seq, head_digest FROM flows WHERE id = ?`, flowID).Scan(&head, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFlowNotFound
	}
	if err != nil {
		return fmt.Errorf("read head: %w", err)
	}

	fi, err := loadFlow(ctx, q, flowID)
	if err != nil {
		return err
	}
	state, err := FlowDigest(fi)
	if err != nil {
		return err
	}

	res.Seq = head + 1
	res.Digest, err = commitDigest(parent, res.Seq, state)
	if err != nil {
		return fmt.Errorf("commit digest: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO commits
		(flow_id, seq, entities_added, entities_removed, relations_added, relations_removed, parent_digest, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, flowID, res.Seq, res.EntitiesAdded, res.EntitiesRemoved, res.RelationsAdded, res.RelationsRemoved, parent, res.Digest)
	if err != nil {
		return fmt.Errorf("insert commit: %w", err)
	}

	_, err = q.ExecContext(ctx, `UPDATE flows SET head_seq = ?, head_digest = ? WHERE id = ?`, res.Seq, res.Digest, flowID)
	if err != nil {
		return fmt.Errorf("advance head: %w", err)
	}
	return nil
}

func (s *Store) observeCommit(started time.Time, err error) {
	s.metrics.CommitDuration.Observe(time.Since(started).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.FlowCommits.WithLabelValues(result).Inc()
}

func (s *Store) countEntries(res CommitResult) {
	s.metrics.DiffEntries.WithLabelValues("entity_added").Add(float64(res.EntitiesAdded))
	s.metrics.DiffEntries.WithLabelValues("entity_removed").Add(float64(res.EntitiesRemoved))
	s.metrics.DiffEntries.WithLabelValues("relation_added").Add(float64(res.RelationsAdded))
	s.metrics.DiffEntries.WithLabelValues("relation_removed").Add(float64(res.RelationsRemoved))
}

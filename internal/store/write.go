package store

import (
	"context"
	"fmt"

	"github.com/roach88/deltasim/internal/engine"
)

// WriteRun inserts a run record, or updates it when the id exists. A run is
// written once as StatusRunning before its trace and again with its final
// status, end time and assignment count.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, model_name, model_hash, span_ns, end_time_ns, assignments, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			end_time_ns = excluded.end_time_ns,
			assignments = excluded.assignments,
			status = excluded.status,
			error = excluded.error
	`,
		run.ID,
		run.Model,
		run.ModelHash,
		int64(run.Span),
		int64(run.EndTime),
		run.Assignments,
		run.Status,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteAssignments appends assignments to a run's trace in one transaction.
// first is the ordinal of as[0]; writing a batch again with the same
// ordinals is a no-op (ON CONFLICT DO NOTHING).
//
// The run must exist (foreign key constraint).
func (s *Store) WriteAssignments(ctx context.Context, runID string, first int, as []engine.Assignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write assignments: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assignments
		(run_id, ordinal, seq, time_ns, delta, signal, value, value_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, ordinal) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write assignments: prepare: %w", err)
	}
	defer stmt.Close()

	for i, a := range as {
		text, hash, err := marshalValue(a.Value)
		if err != nil {
			return fmt.Errorf("write assignments: ordinal %d: %w", first+i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			first+i,
			a.Seq,
			int64(a.Time),
			a.Delta,
			a.Signal,
			text,
			hash,
		); err != nil {
			return fmt.Errorf("write assignments: ordinal %d: %w", first+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write assignments: commit: %w", err)
	}
	return nil
}

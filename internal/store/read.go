package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/queryir"
	"github.com/roach88/deltasim/internal/querysql"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

var runColumns = strings.Join(queryir.Columns[queryir.TableRuns], ", ")

// ReadRun retrieves a single run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns every run in recording order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadAssignments returns a run's whole trace in application order.
func (s *Store) ReadAssignments(ctx context.Context, runID string) ([]engine.Assignment, error) {
	recs, err := s.QueryAssignments(ctx, queryir.TraceFilter{RunID: runID})
	if err != nil {
		return nil, err
	}
	out := make([]engine.Assignment, len(recs))
	for i, r := range recs {
		out[i] = r.Assignment
	}
	return out, nil
}

// QueryAssignments returns the stored assignments matching f, ordered by
// run and ordinal. Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryAssignments(ctx context.Context, f queryir.TraceFilter) ([]Record, error) {
	sqlText, params, err := querysql.NewSQLCompiler().Compile(f.Query())
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return recs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var span, end int64
	err := row.Scan(&run.ID, &run.Model, &run.ModelHash, &span, &end, &run.Assignments, &run.Status, &run.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Span = time.Duration(span)
	run.EndTime = time.Duration(end)
	return run, nil
}

// scanRecord reads the columns of queryir.Columns[TableAssignments].
func scanRecord(row scanner) (Record, error) {
	var rec Record
	var at int64
	var text string
	err := row.Scan(&rec.RunID, &rec.Ordinal, &rec.Seq, &at, &rec.Delta, &rec.Signal, &text, &rec.ValueHash)
	if err != nil {
		return Record{}, fmt.Errorf("scan assignment: %w", err)
	}
	rec.Time = time.Duration(at)
	if rec.Value, err = unmarshalValue(text); err != nil {
		return Record{}, fmt.Errorf("assignment %s/%d: %w", rec.RunID, rec.Ordinal, err)
	}
	return rec, nil
}

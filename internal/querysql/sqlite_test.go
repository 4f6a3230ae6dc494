package querysql_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/queryir"
	"github.com/roach88/deltasim/internal/querysql"
	"github.com/roach88/deltasim/internal/store"
	"github.com/roach88/deltasim/internal/value"
)

// traceDB returns the path of a trace database holding runs r1 and r2, each
// with a clk/q pair of assignments at 1s, 2s and 3s.
func traceDB(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trace.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	for _, id := range []string{"r2", "r1"} {
		require.NoError(t, st.WriteRun(ctx, store.Run{ID: id, Model: "m", ModelHash: "h", Span: 5 * time.Second, Status: store.StatusOK}))
		var as []engine.Assignment
		for i := 1; i <= 3; i++ {
			at := time.Duration(i) * time.Second
			as = append(as,
				engine.Assignment{Seq: int64(2 * i), Time: at, Signal: "clk", Value: value.Bool(i%2 == 1)},
				engine.Assignment{Seq: int64(2*i + 1), Time: at, Delta: 1, Signal: "q", Value: value.Integer(i)},
			)
		}
		require.NoError(t, st.WriteAssignments(ctx, id, 0, as))
	}
	return path
}

type row struct {
	runID   string
	ordinal int
	timeNS  int64
}

func queryRows(t *testing.T, db *sql.DB, q queryir.Query) []row {
	t.Helper()
	stmt, params, err := querysql.NewSQLCompiler().Compile(q)
	require.NoError(t, err)

	rows, err := db.Query(stmt, params...)
	require.NoError(t, err, stmt)
	defer rows.Close()

	var out []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.runID, &r.ordinal, &r.timeNS))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestCompile_ExecutesOnSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", traceDB(t))
	require.NoError(t, err)
	defer db.Close()

	fields := []string{"run_id", "ordinal", "time_ns"}

	t.Run("all assignments in stable order", func(t *testing.T) {
		got := queryRows(t, db, queryir.Select{From: queryir.TableAssignments, Fields: fields})
		require.Len(t, got, 12)
		assert.Equal(t, row{"r1", 0, int64(time.Second)}, got[0])
		assert.Equal(t, row{"r1", 5, int64(3 * time.Second)}, got[5])
		assert.Equal(t, row{"r2", 0, int64(time.Second)}, got[6])
	})

	t.Run("trace filter", func(t *testing.T) {
		q := queryir.TraceFilter{RunID: "r2", Signal: "q", From: 2 * time.Second, To: 4 * time.Second, Limit: 1}.Query()
		q.Fields = fields
		got := queryRows(t, db, q)
		assert.Equal(t, []row{{"r2", 3, int64(2 * time.Second)}}, got)
	})

	t.Run("nested predicates", func(t *testing.T) {
		got := queryRows(t, db, queryir.Select{
			From:   queryir.TableAssignments,
			Fields: fields,
			Filter: queryir.And{Predicates: []queryir.Predicate{
				queryir.Equals{Field: "run_id", Value: value.Symbol("r1")},
				queryir.And{Predicates: []queryir.Predicate{
					queryir.Compare{Field: "delta", Op: queryir.OpGreater, Value: value.Integer(0)},
					queryir.Compare{Field: "seq", Op: queryir.OpLessEq, Value: value.Integer(5)},
				}},
			}},
		})
		assert.Equal(t, []row{{"r1", 1, int64(time.Second)}, {"r1", 3, int64(2 * time.Second)}}, got)
	})

	t.Run("runs", func(t *testing.T) {
		stmt, params, err := querysql.NewSQLCompiler().Compile(queryir.Select{From: queryir.TableRuns, Fields: []string{"id"}})
		require.NoError(t, err)
		rows, err := db.Query(stmt, params...)
		require.NoError(t, err)
		defer rows.Close()

		var ids []string
		for rows.Next() {
			var id string
			require.NoError(t, rows.Scan(&id))
			ids = append(ids, id)
		}
		assert.Equal(t, []string{"r2", "r1"}, ids)
	})
}

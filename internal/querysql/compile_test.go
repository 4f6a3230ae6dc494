package querysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/queryir"
	"github.com/roach88/deltasim/internal/value"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:   queryir.TableAssignments,
		Fields: []string{"signal", "value"},
		Filter: queryir.Equals{Field: "signal", Value: value.Symbol("clk")},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT signal, value FROM assignments WHERE signal = ? ORDER BY run_id COLLATE BINARY ASC, ordinal ASC",
		sql)
	assert.Equal(t, []any{"clk"}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler()

	for _, q := range []queryir.Query{
		queryir.Select{From: queryir.TableRuns, Fields: []string{"id"}},
		&queryir.Select{From: queryir.TableAssignments, Fields: []string{"seq"}},
	} {
		sql, _, err := compiler.Compile(q)
		require.NoError(t, err)
		assert.Contains(t, sql, " ORDER BY ")
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	compiler := NewSQLCompiler()

	evil := "x' OR '1'='1"
	sql, params, err := compiler.Compile(queryir.Select{
		From:   queryir.TableAssignments,
		Fields: []string{"seq"},
		Filter: &queryir.Equals{Field: "signal", Value: value.Symbol(evil)},
	})
	require.NoError(t, err)
	assert.NotContains(t, sql, evil)
	assert.Equal(t, []any{evil}, params)
}

func TestCompile_TraceFilter(t *testing.T) {
	compiler := NewSQLCompiler()

	q := queryir.TraceFilter{RunID: "r1", From: time.Second, To: 3 * time.Second, Limit: 5}.Query()
	sql, params, err := compiler.Compile(q)
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE run_id = ? AND time_ns >= ? AND time_ns < ? ORDER BY")
	assert.Contains(t, sql, "LIMIT ?")
	assert.Equal(t, []any{"r1", int64(time.Second), int64(3 * time.Second), 5}, params)
}

func TestCompile_NestedAnd(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(queryir.Select{
		From:   queryir.TableAssignments,
		Fields: []string{"seq"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "delta", Value: value.Integer(0)},
			queryir.And{Predicates: []queryir.Predicate{
				queryir.Compare{Field: "seq", Op: queryir.OpGreater, Value: value.Integer(2)},
				queryir.Compare{Field: "seq", Op: queryir.OpLessEq, Value: value.Integer(9)},
			}},
			queryir.And{},
		}},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE delta = ? AND (seq > ? AND seq <= ?) AND (1 = 1) ORDER BY")
	assert.Equal(t, []any{int64(0), int64(2), int64(9)}, params)
}

func TestCompile_Rejects(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.Compile(nil)
	assert.Error(t, err)

	_, _, err = compiler.Compile(queryir.Select{From: "sqlite_master", Fields: []string{"sql"}})
	assert.Error(t, err)

	_, _, err = compiler.Compile(queryir.Select{
		From:   queryir.TableRuns,
		Fields: []string{"id"},
		Filter: queryir.Equals{Field: "status", Value: value.NewList()},
	})
	assert.Error(t, err)
}

func TestValueToParam(t *testing.T) {
	tests := []struct {
		in   value.Value
		want any
	}{
		{value.Symbol("a"), "a"},
		{value.Integer(-3), int64(-3)},
		{value.Bool(true), true},
	}
	for _, tt := range tests {
		got, err := valueToParam(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := valueToParam(value.Undefined{})
	assert.Error(t, err)
}

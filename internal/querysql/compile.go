// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/deltasim/internal/queryir"
	"github.com/roach88/deltasim/internal/value"
)

// stableOrder is the ORDER BY key of each table. Every compiled query ends
// with one, so results are identical across replays.
var stableOrder = map[string]string{
	queryir.TableRuns:        "rowid ASC",
	queryir.TableAssignments: "run_id COLLATE BINARY ASC, ordinal ASC",
}

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Field names come from queryir.Columns and are validated before being
// written into the SQL text; values are always ? parameters.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q); err != nil {
		return "", nil, fmt.Errorf("invalid query: %w", err)
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	var params []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.Fields, ", "), q.From)

	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(filterSQL)
		params = append(params, filterParams...)
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(stableOrder[q.From])

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

// compilePredicate returns a WHERE fragment. Values are never interpolated.
func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileComparison(pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return c.compileComparison(pred.Field, "=", pred.Value)
	case queryir.Compare:
		return c.compileComparison(pred.Field, string(pred.Op), pred.Value)
	case *queryir.Compare:
		return c.compileComparison(pred.Field, string(pred.Op), pred.Value)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileComparison(field, op string, v value.Value) (string, []any, error) {
	param, err := valueToParam(v)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", field, err)
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{param}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil // Always true (vacuous truth)
	}

	var parts []string
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// valueToParam converts a value to a Go native SQL parameter.
func valueToParam(v value.Value) (any, error) {
	switch val := v.(type) {
	case value.Symbol:
		return string(val), nil
	case value.Integer:
		return int64(val), nil
	case value.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value for SQL parameter: %T", v)
	}
}

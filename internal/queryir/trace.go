package queryir

import (
	"time"

	"github.com/roach88/deltasim/internal/value"
)

// TraceFilter is the common assignment query: one run, optionally one
// signal and a half-open time window [From, To).
type TraceFilter struct {
	RunID  string
	Signal string
	From   time.Duration
	To     time.Duration // 0 = unbounded
	Limit  int
}

// Query builds the Select for f.
func (f TraceFilter) Query() Select {
	var preds []Predicate
	if f.RunID != "" {
		preds = append(preds, Equals{Field: "run_id", Value: value.Symbol(f.RunID)})
	}
	if f.Signal != "" {
		preds = append(preds, Equals{Field: "signal", Value: value.Symbol(f.Signal)})
	}
	if f.From > 0 {
		preds = append(preds, Compare{Field: "time_ns", Op: OpGreaterEq, Value: value.Integer(f.From)})
	}
	if f.To > 0 {
		preds = append(preds, Compare{Field: "time_ns", Op: OpLess, Value: value.Integer(f.To)})
	}

	sel := Select{
		From:   TableAssignments,
		Fields: Columns[TableAssignments],
		Limit:  f.Limit,
	}
	if len(preds) > 0 {
		sel.Filter = And{Predicates: preds}
	}
	return sel
}

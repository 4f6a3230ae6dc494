package queryir

import "github.com/roach88/deltasim/internal/value"

// Table names of the trace log.
const (
	TableRuns        = "runs"
	TableAssignments = "assignments"
)

// Columns lists the queryable columns of each table, in storage order.
var Columns = map[string][]string{
	TableRuns: {
		"id", "model_name", "model_hash", "span_ns", "end_time_ns",
		"assignments", "status", "error",
	},
	TableAssignments: {
		"run_id", "ordinal", "seq", "time_ns", "delta", "signal", "value", "value_hash",
	},
}

// Query represents an abstract query over the trace log.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition over one table's columns.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads rows of one table.
//
//	SELECT <fields> FROM <from> WHERE <filter> ORDER BY <stable key> LIMIT <limit>
//
// Fields must be explicit; the backend decides the ordering so that results
// are deterministic. Limit 0 means no limit.
type Select struct {
	From   string
	Fields []string
	Filter Predicate // nil = no filter
	Limit  int
}

func (Select) queryNode() {}

// Equals is field = value. Value is an Integer, Bool or Symbol; Symbols
// compare as text.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// Op is a comparison operator.
type Op string

const (
	OpLess      Op = "<"
	OpLessEq    Op = "<="
	OpGreater   Op = ">"
	OpGreaterEq Op = ">="
)

// Compare is field <op> value, used for time and sequence ranges.
type Compare struct {
	Field string
	Op    Op
	Value value.Value
}

func (Compare) predicateNode() {}

// And is a conjunction (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/deltasim/internal/value"
)

// Validate checks that a query names a known table and only its columns,
// uses known operators, and compares against Integer, Bool or Symbol
// values. All problems are joined into one error.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	v := &validator{}
	v.validateQuery(q)
	return errors.Join(v.errs...)
}

// validator accumulates problems during traversal.
type validator struct {
	errs    []error
	columns []string
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addError("nil query")
			return
		}
		v.validateSelect(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	cols, ok := Columns[sel.From]
	if !ok {
		v.addError("unknown table %q", sel.From)
		return
	}
	v.columns = cols

	if len(sel.Fields) == 0 {
		v.addError("select from %s: fields must be explicit", sel.From)
	}
	for _, f := range sel.Fields {
		v.checkField(f)
	}
	if sel.Limit < 0 {
		v.addError("negative limit %d", sel.Limit)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) checkField(f string) {
	if !slices.Contains(v.columns, f) {
		v.addError("unknown field %q", f)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkField(pred.Field)
		v.checkValue(pred.Field, pred.Value)
	case *Equals:
		v.validatePredicate(*pred)
	case Compare:
		v.checkField(pred.Field)
		v.checkValue(pred.Field, pred.Value)
		switch pred.Op {
		case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		default:
			v.addError("field %q: unknown operator %q", pred.Field, pred.Op)
		}
	case *Compare:
		v.validatePredicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		v.validatePredicate(*pred)
	case nil:
		v.addError("nil predicate")
	default:
		v.addError("unknown predicate type %T", p)
	}
}

func (v *validator) checkValue(field string, val value.Value) {
	switch val.(type) {
	case value.Integer, value.Bool, value.Symbol:
	default:
		v.addError("field %q: value must be an integer, bool or symbol, got %v", field, kindOf(val))
	}
}

func kindOf(v value.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

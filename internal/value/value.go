package value

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Kind tags a Value variant.
type Kind int

const (
	KindUndefined Kind = iota
	KindInteger
	KindReal
	KindBool
	KindSymbol
	KindVar
	KindExpr
	KindList
)

var kindNames = [...]string{
	KindUndefined: "undefined",
	KindInteger:   "integer",
	KindReal:      "real",
	KindBool:      "bool",
	KindSymbol:    "symbol",
	KindVar:       "var",
	KindExpr:      "expr",
	KindList:      "list",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindUndefined, fmt.Errorf("unknown value kind %q", s)
}

// Value is a sealed interface over the value variants:
// Undefined, Integer, Real, Bool, Symbol, Var, Expr and List.
type Value interface {
	Kind() Kind
	String() string
	value() // sealed
}

// Undefined is the value of a signal that was never assigned.
type Undefined struct{}

func (Undefined) Kind() Kind     { return KindUndefined }
func (Undefined) String() string { return "undefined" }
func (Undefined) value()         {}

// Integer is an exact 64-bit integer.
type Integer int64

func (Integer) Kind() Kind       { return KindInteger }
func (i Integer) String() string { return fmt.Sprintf("%d", int64(i)) }
func (Integer) value()           {}

// Bool is a boolean (logic level).
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) value() {}

// Symbol is a free symbolic atom, e.g. the x in add(x, 1).
type Symbol string

func (Symbol) Kind() Kind       { return KindSymbol }
func (s Symbol) String() string { return string(s) }
func (Symbol) value()           {}

// Var is a named placeholder inside a template. Templates are resolved with
// Substitute before they are scheduled; a Var never reaches a signal through
// the reactive layer.
type Var string

func (Var) Kind() Kind       { return KindVar }
func (v Var) String() string { return "?" + string(v) }
func (Var) value()           {}

// Real is an exact decimal number.
//
// The decimal is held by pointer and never mutated after construction, so
// copies of a Real share storage safely.
type Real struct {
	d *apd.Decimal
}

func (Real) Kind() Kind { return KindReal }
func (r Real) String() string {
	if r.d == nil {
		return "0"
	}
	return r.d.Text('f')
}
func (Real) value() {}

// Decimal returns a copy of the underlying decimal.
func (r Real) Decimal() *apd.Decimal {
	d := new(apd.Decimal)
	if r.d != nil {
		d.Set(r.d)
	}
	return d
}

// NewReal parses a decimal literal such as "1.25" or "-3E-2".
func NewReal(s string) (Real, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Real{}, fmt.Errorf("parse real %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Real{}, fmt.Errorf("real %q is not finite", s)
	}
	return Real{d: d}, nil
}

// MustReal is like NewReal but panics on error.
// Use only in tests or for literals known to be valid.
func MustReal(s string) Real {
	r, err := NewReal(s)
	if err != nil {
		panic(err)
	}
	return r
}

// RealFromDecimal wraps a copy of d.
func RealFromDecimal(d *apd.Decimal) Real {
	c := new(apd.Decimal)
	c.Set(d)
	return Real{d: c}
}

// RealFromInt converts an integer to a Real.
func RealFromInt(i int64) Real {
	return Real{d: apd.New(i, 0)}
}

// canonicalText renders the reduced decimal so that 1.50 and 1.5 agree.
func (r Real) canonicalText() string {
	if r.d == nil || r.d.IsZero() {
		return "0"
	}
	reduced := new(apd.Decimal)
	reduced.Reduce(r.d)
	return reduced.String()
}

// Expr is a symbolic expression node: an operator head applied to arguments.
type Expr struct {
	Head string
	Args []Value
}

func (Expr) Kind() Kind { return KindExpr }
func (e Expr) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = str(a)
	}
	return e.Head + "(" + strings.Join(parts, ", ") + ")"
}
func (Expr) value() {}

// NewExpr builds an expression node. The argument slice is copied.
func NewExpr(head string, args ...Value) Expr {
	cp := make([]Value, len(args))
	copy(cp, args)
	return Expr{Head: head, Args: cp}
}

// List is an ordered composite value (e.g. the values on a bus).
type List []Value

func (List) Kind() Kind { return KindList }
func (l List) String() string {
	parts := make([]string, len(l))
	for i, a := range l {
		parts[i] = str(a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (List) value() {}

// NewList builds a list value. The argument slice is copied.
func NewList(vals ...Value) List {
	cp := make(List, len(vals))
	copy(cp, vals)
	return cp
}

func str(v Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}

// OrUndefined maps a nil Value to Undefined.
func OrUndefined(v Value) Value {
	if v == nil {
		return Undefined{}
	}
	return v
}

// Equal reports whether a and b are structurally equal.
// A nil Value equals Undefined. Reals compare numerically, so 1.5 equals 1.50;
// an Integer never equals a Real.
func Equal(a, b Value) bool {
	a, b = OrUndefined(a), OrUndefined(b)
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Undefined:
		return true
	case Integer:
		return x == b.(Integer)
	case Bool:
		return x == b.(Bool)
	case Symbol:
		return x == b.(Symbol)
	case Var:
		return x == b.(Var)
	case Real:
		y := b.(Real)
		return x.Decimal().Cmp(y.Decimal()) == 0
	case Expr:
		y := b.(Expr)
		if x.Head != y.Head || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case List:
		y := b.(List)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsNumeric reports whether v is an Integer or a Real.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Integer, Real:
		return true
	}
	return false
}

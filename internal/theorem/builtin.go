package theorem

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/deltasim/internal/value"
)

// Priorities of the builtin theorems. Folding beats identities so that
// add(2, 0) folds to 2 through arithmetic rather than the identity rule;
// either gives the same value.
const (
	PriorityIdentity = 10
	PriorityFold     = 20
)

// decimalCtx is the arithmetic context for Real folding.
var decimalCtx = apd.BaseContext.WithPrecision(34)

var numeric = []value.Kind{value.KindInteger, value.KindReal}

func capNum(name string) Capture  { return Capture{Name: name, Kinds: numeric} }
func capBool(name string) Capture { return Capture{Name: name, Kinds: []value.Kind{value.KindBool}} }
func capAny(name string) Capture  { return Capture{Name: name} }

// Builtins returns fresh instances of the builtin simplification theorems,
// all in AspectSimplify:
//
//	add(n, m), sub(n, m), mul(n, m), neg(n)   numeric constant folding
//	and(p, q), or(p, q), not(p)               boolean constant folding
//	add(x, 0), add(0, x), mul(x, 1), mul(1, x) -> x
//	mul(x, 0), mul(0, x)                       -> 0
func Builtins() []*Theorem {
	zero := Literal{Value: value.Integer(0)}
	one := Literal{Value: value.Integer(1)}
	x := value.Var("x")

	return []*Theorem{
		fold2("fold.add", "add", addNumbers),
		fold2("fold.sub", "sub", subNumbers),
		fold2("fold.mul", "mul", mulNumbers),
		{
			ID: "fold.neg", Aspect: AspectSimplify, Priority: PriorityFold,
			Pattern: ExprPattern{Head: "neg", Args: []Pattern{capNum("a")}},
			Apply: func(b Bindings) (value.Value, bool) {
				return subNumbers(value.Integer(0), b["a"])
			},
		},
		boolFold2("fold.and", "and", func(p, q bool) bool { return p && q }),
		boolFold2("fold.or", "or", func(p, q bool) bool { return p || q }),
		{
			ID: "fold.not", Aspect: AspectSimplify, Priority: PriorityFold,
			Pattern: ExprPattern{Head: "not", Args: []Pattern{capBool("p")}},
			Apply: func(b Bindings) (value.Value, bool) {
				return !b["p"].(value.Bool), true
			},
		},
		identity("identity.add.right", ExprPattern{Head: "add", Args: []Pattern{capAny("x"), zero}}, x),
		identity("identity.add.left", ExprPattern{Head: "add", Args: []Pattern{zero, capAny("x")}}, x),
		identity("identity.mul.right", ExprPattern{Head: "mul", Args: []Pattern{capAny("x"), one}}, x),
		identity("identity.mul.left", ExprPattern{Head: "mul", Args: []Pattern{one, capAny("x")}}, x),
		identity("identity.mul.zero.right", ExprPattern{Head: "mul", Args: []Pattern{Any{}, zero}}, value.Integer(0)),
		identity("identity.mul.zero.left", ExprPattern{Head: "mul", Args: []Pattern{zero, Any{}}}, value.Integer(0)),
	}
}

func fold2(id, head string, op func(a, b value.Value) (value.Value, bool)) *Theorem {
	return &Theorem{
		ID: id, Aspect: AspectSimplify, Priority: PriorityFold,
		Pattern: ExprPattern{Head: head, Args: []Pattern{capNum("a"), capNum("b")}},
		Apply: func(b Bindings) (value.Value, bool) {
			return op(b["a"], b["b"])
		},
	}
}

func boolFold2(id, head string, op func(p, q bool) bool) *Theorem {
	return &Theorem{
		ID: id, Aspect: AspectSimplify, Priority: PriorityFold,
		Pattern: ExprPattern{Head: head, Args: []Pattern{capBool("p"), capBool("q")}},
		Apply: func(b Bindings) (value.Value, bool) {
			return value.Bool(op(bool(b["p"].(value.Bool)), bool(b["q"].(value.Bool)))), true
		},
	}
}

func identity(id string, p Pattern, rewrite value.Value) *Theorem {
	return &Theorem{ID: id, Aspect: AspectSimplify, Priority: PriorityIdentity, Pattern: p, Rewrite: rewrite}
}

// Integer arithmetic stays Integer unless it overflows; anything involving
// a Real, or an overflow, is computed on decimals.

func addNumbers(a, b value.Value) (value.Value, bool) {
	if x, y, ok := ints(a, b); ok {
		if s := x + y; (s > x) == (y > 0) {
			return value.Integer(s), true
		}
	}
	return decimalOp(a, b, decimalCtx.Add)
}

func subNumbers(a, b value.Value) (value.Value, bool) {
	if x, y, ok := ints(a, b); ok {
		if d := x - y; (d < x) == (y > 0) {
			return value.Integer(d), true
		}
	}
	return decimalOp(a, b, decimalCtx.Sub)
}

func mulNumbers(a, b value.Value) (value.Value, bool) {
	if x, y, ok := ints(a, b); ok {
		if x == 0 || y == 0 {
			return value.Integer(0), true
		}
		p := x * y
		if p/y == x && !(x == -1 && y == math.MinInt64) && !(y == -1 && x == math.MinInt64) {
			return value.Integer(p), true
		}
	}
	return decimalOp(a, b, decimalCtx.Mul)
}

func ints(a, b value.Value) (int64, int64, bool) {
	x, ok1 := a.(value.Integer)
	y, ok2 := b.(value.Integer)
	return int64(x), int64(y), ok1 && ok2
}

func toDecimal(v value.Value) (*apd.Decimal, bool) {
	switch n := v.(type) {
	case value.Integer:
		return apd.New(int64(n), 0), true
	case value.Real:
		return n.Decimal(), true
	}
	return nil, false
}

func decimalOp(a, b value.Value, op func(d, x, y *apd.Decimal) (apd.Condition, error)) (value.Value, bool) {
	x, ok1 := toDecimal(a)
	y, ok2 := toDecimal(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	d := new(apd.Decimal)
	if _, err := op(d, x, y); err != nil || d.Form != apd.Finite {
		return nil, false
	}
	return value.RealFromDecimal(d), true
}

package theorem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/value"
)

// simplify rewrites v to a fixpoint with the builtin theorems.
func simplify(t *testing.T, v value.Value) value.Value {
	t.Helper()
	p := NewProvider(quiet())
	p.MustAdd(Builtins()...)
	for i := 0; i < 16; i++ {
		next, changed := p.Rewrite(AspectSimplify, v)
		if !changed {
			return next
		}
		v = next
	}
	t.Fatalf("no fixpoint for %s", v)
	return nil
}

func TestBuiltins_Fold(t *testing.T) {
	e := value.NewExpr
	tests := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"add ints", e("add", value.Integer(2), value.Integer(3)), value.Integer(5)},
		{"sub ints", e("sub", value.Integer(2), value.Integer(3)), value.Integer(-1)},
		{"mul ints", e("mul", value.Integer(4), value.Integer(-3)), value.Integer(-12)},
		{"neg int", e("neg", value.Integer(7)), value.Integer(-7)},
		{"add reals", e("add", value.MustReal("0.1"), value.MustReal("0.2")), value.MustReal("0.3")},
		{"mixed", e("mul", value.Integer(3), value.MustReal("1.5")), value.MustReal("4.5")},
		{"neg real", e("neg", value.MustReal("2.25")), value.MustReal("-2.25")},
		{"and", e("and", value.Bool(true), value.Bool(false)), value.Bool(false)},
		{"or", e("or", value.Bool(true), value.Bool(false)), value.Bool(true)},
		{"not", e("not", value.Bool(false)), value.Bool(true)},
		{"nested", e("add", e("mul", value.Integer(2), value.Integer(5)), e("neg", value.Integer(4))), value.Integer(6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simplify(t, tt.in)
			assert.True(t, value.Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestBuiltins_Identities(t *testing.T) {
	e := value.NewExpr
	x := value.Symbol("x")
	tests := []struct {
		name string
		in   value.Value
		want value.Value
	}{
		{"add right zero", e("add", x, value.Integer(0)), x},
		{"add left zero", e("add", value.Integer(0), x), x},
		{"mul right one", e("mul", x, value.Integer(1)), x},
		{"mul left one", e("mul", value.Integer(1), x), x},
		{"mul right zero", e("mul", x, value.Integer(0)), value.Integer(0)},
		{"mul left zero", e("mul", value.Integer(0), e("f", x)), value.Integer(0)},
		{"chain", e("add", e("mul", x, value.Integer(1)), e("mul", value.Symbol("y"), value.Integer(0))), x},
		{"symbolic stays", e("add", x, value.Symbol("y")), e("add", x, value.Symbol("y"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simplify(t, tt.in)
			assert.True(t, value.Equal(tt.want, got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestBuiltins_IntegerOverflowBecomesReal(t *testing.T) {
	got := simplify(t, value.NewExpr("add", value.Integer(math.MaxInt64), value.Integer(1)))
	require.Equal(t, value.KindReal, got.Kind())
	assert.Equal(t, "9223372036854775808", got.String())

	got = simplify(t, value.NewExpr("mul", value.Integer(math.MinInt64), value.Integer(-1)))
	require.Equal(t, value.KindReal, got.Kind())
	assert.Equal(t, "9223372036854775808", got.String())
}

func TestBuiltins_BoolFoldRejectsNumbers(t *testing.T) {
	in := value.NewExpr("and", value.Integer(1), value.Bool(true))
	got := simplify(t, in)
	assert.True(t, value.Equal(in, got))
}

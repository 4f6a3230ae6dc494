package theorem

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/deltasim/internal/value"
)

// Bindings maps capture names to the sub-values they matched.
type Bindings map[string]value.Value

// Pattern is a sealed interface over the pattern variants:
// Any, Capture, Literal, ExprPattern and ListPattern.
type Pattern interface {
	String() string
	match(v value.Value, b Bindings) bool
}

// Any matches every value without binding it.
type Any struct{}

func (Any) String() string                   { return "_" }
func (Any) match(value.Value, Bindings) bool { return true }

// Capture binds the matched value to Name. When Kinds is non-empty the value
// must be of one of those kinds. A name captured twice in one pattern must
// match structurally equal values.
type Capture struct {
	Name  string
	Kinds []value.Kind
}

func (c Capture) String() string {
	if len(c.Kinds) == 0 {
		return "?" + c.Name
	}
	names := make([]string, len(c.Kinds))
	for i, k := range c.Kinds {
		names[i] = k.String()
	}
	return fmt.Sprintf("?%s:%s", c.Name, strings.Join(names, "|"))
}

func (c Capture) match(v value.Value, b Bindings) bool {
	if len(c.Kinds) > 0 && !slices.Contains(c.Kinds, v.Kind()) {
		return false
	}
	if prev, ok := b[c.Name]; ok {
		return value.Equal(prev, v)
	}
	b[c.Name] = v
	return true
}

// Literal matches values structurally equal to Value.
type Literal struct {
	Value value.Value
}

func (l Literal) String() string { return value.OrUndefined(l.Value).String() }

func (l Literal) match(v value.Value, _ Bindings) bool {
	return value.Equal(l.Value, v)
}

// ExprPattern matches an Expr with the same head and arity whose arguments
// match Args pairwise.
type ExprPattern struct {
	Head string
	Args []Pattern
}

func (e ExprPattern) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", e.Head, strings.Join(args, ", "))
}

func (e ExprPattern) match(v value.Value, b Bindings) bool {
	x, ok := v.(value.Expr)
	if !ok || x.Head != e.Head || len(x.Args) != len(e.Args) {
		return false
	}
	for i, p := range e.Args {
		if !p.match(x.Args[i], b) {
			return false
		}
	}
	return true
}

// ListPattern matches a List of the same length element by element.
type ListPattern struct {
	Elems []Pattern
}

func (l ListPattern) String() string {
	elems := make([]string, len(l.Elems))
	for i, p := range l.Elems {
		elems[i] = p.String()
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func (l ListPattern) match(v value.Value, b Bindings) bool {
	x, ok := v.(value.List)
	if !ok || len(x) != len(l.Elems) {
		return false
	}
	for i, p := range l.Elems {
		if !p.match(x[i], b) {
			return false
		}
	}
	return true
}

// MatchPattern matches p against v. Bindings are returned only on success.
func MatchPattern(p Pattern, v value.Value) (Bindings, bool) {
	b := make(Bindings)
	if !p.match(value.OrUndefined(v), b) {
		return nil, false
	}
	return b, true
}

// Captures returns the capture names used by p, in first-occurrence order.
func Captures(p Pattern) []string {
	var names []string
	var walk func(Pattern)
	walk = func(p Pattern) {
		switch x := p.(type) {
		case Capture:
			if !slices.Contains(names, x.Name) {
				names = append(names, x.Name)
			}
		case ExprPattern:
			for _, a := range x.Args {
				walk(a)
			}
		case ListPattern:
			for _, e := range x.Elems {
				walk(e)
			}
		}
	}
	walk(p)
	return names
}

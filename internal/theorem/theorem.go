package theorem

import (
	"fmt"

	"github.com/roach88/deltasim/internal/value"
)

// Aspect is the lookup domain a theorem belongs to.
type Aspect string

// AspectSimplify is the aspect of the builtin simplification theorems.
const AspectSimplify Aspect = "simplify"

// Subject is anything with a value structure that patterns can match.
// Engine signals, graph ports and buses are subjects.
type Subject interface {
	Structure() value.Value
}

type plainValue struct{ v value.Value }

func (p plainValue) Structure() value.Value { return p.v }

// Of wraps a bare value as a Subject.
func Of(v value.Value) Subject { return plainValue{v: value.OrUndefined(v)} }

// Theorem is a rewrite rule.
//
// The result of a match is produced by Apply when it is set, otherwise by
// substituting the bindings into the Rewrite template. A theorem with
// neither is a pure classifier: it can be looked up but never rewrites.
type Theorem struct {
	ID       string
	Aspect   Aspect
	Priority int
	Pattern  Pattern

	// Rewrite is a template whose value.Var placeholders name captures.
	Rewrite value.Value

	// Apply computes the result directly. Returning false declines the
	// rewrite even though the pattern matched.
	Apply func(b Bindings) (value.Value, bool)
}

func (t *Theorem) String() string {
	return fmt.Sprintf("%s[%s/%d] %s", t.ID, t.Aspect, t.Priority, t.Pattern)
}

// Validate checks the theorem is well formed: it has an id, a pattern, and
// a rewrite template that only refers to captured names.
func (t *Theorem) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("theorem: empty id")
	}
	if t.Pattern == nil {
		return fmt.Errorf("theorem %q: nil pattern", t.ID)
	}
	if t.Rewrite != nil {
		captured := make(Bindings)
		for _, name := range Captures(t.Pattern) {
			captured[name] = value.Undefined{}
		}
		if err := value.Unbound(t.Rewrite, captured); err != nil {
			return fmt.Errorf("theorem %q: rewrite: %w", t.ID, err)
		}
	}
	return nil
}

// Result produces the rewritten value for bindings b. ok is false when the
// theorem declines or cannot rewrite.
func (t *Theorem) Result(b Bindings) (v value.Value, ok bool) {
	switch {
	case t.Apply != nil:
		return t.Apply(b)
	case t.Rewrite != nil:
		return value.Substitute(t.Rewrite, b), true
	default:
		return nil, false
	}
}

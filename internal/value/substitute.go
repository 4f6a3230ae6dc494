package value

import "fmt"

// Substitute replaces every Var in template with its binding.
// Vars without a binding are left in place; use Unbound to detect them.
func Substitute(template Value, bindings map[string]Value) Value {
	switch t := OrUndefined(template).(type) {
	case Var:
		if v, ok := bindings[string(t)]; ok {
			return v
		}
		return t
	case Expr:
		args := make([]Value, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, bindings)
		}
		return Expr{Head: t.Head, Args: args}
	case List:
		out := make(List, len(t))
		for i, a := range t {
			out[i] = Substitute(a, bindings)
		}
		return out
	default:
		return t
	}
}

// Vars returns the distinct Var names in v in first-occurrence order.
func Vars(v Value) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Value)
	walk = func(v Value) {
		switch t := v.(type) {
		case Var:
			if !seen[string(t)] {
				seen[string(t)] = true
				names = append(names, string(t))
			}
		case Expr:
			for _, a := range t.Args {
				walk(a)
			}
		case List:
			for _, a := range t {
				walk(a)
			}
		}
	}
	walk(v)
	return names
}

// Unbound returns an error naming the first Var in v that has no binding.
func Unbound(v Value, bindings map[string]Value) error {
	for _, name := range Vars(v) {
		if _, ok := bindings[name]; !ok {
			return fmt.Errorf("unbound variable %q", name)
		}
	}
	return nil
}

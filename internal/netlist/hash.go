package netlist

import (
	"github.com/roach88/deltasim/internal/value"
)

// Hash returns the content hash of the model. Two models with the same hash
// produce the same trace.
func (m *Model) Hash() string {
	return value.HashBytes(value.DomainModel, value.MustMarshalCanonical(m.Structure()))
}

// Structure renders the model as a value tree in declaration order.
func (m *Model) Structure() value.Value {
	var items []value.Value
	sym := func(s string) value.Value { return value.Symbol(s) }
	ns := func(d int64) value.Value { return value.Integer(d) }

	for _, s := range m.Signals {
		items = append(items, value.NewExpr("signal", sym(s.Name), value.OrUndefined(s.Initial)))
	}
	for _, b := range m.Buses {
		ports := make([]value.Value, len(b.Ports))
		for i, p := range b.Ports {
			ports[i] = value.NewExpr("port", sym(p.Name), sym(p.Signal), sym(p.Direction.String()))
		}
		items = append(items, value.NewExpr("bus", sym(b.Name), value.NewList(ports...)))
	}
	for _, p := range m.Processes {
		inputs := make([]value.Value, len(p.Inputs))
		for i, in := range p.Inputs {
			inputs[i] = sym(in)
		}
		items = append(items, value.NewExpr("process",
			sym(p.Name), sym(p.Output), value.NewList(inputs...),
			value.OrUndefined(p.Expr), sym(string(p.Aspect)), ns(int64(p.Delay))))
	}
	for _, t := range m.Theorems {
		rewrite := value.OrUndefined(t.Rewrite)
		if t.Apply != nil {
			rewrite = sym("<computed>")
		}
		items = append(items, value.NewExpr("theorem",
			sym(t.ID), sym(string(t.Aspect)), ns(int64(t.Priority)), sym(t.Pattern.String()), rewrite))
	}
	for _, s := range m.Simplify {
		items = append(items, value.NewExpr("simplify", sym(s.Signal), sym(string(s.Aspect))))
	}
	for _, s := range m.Stimuli {
		items = append(items, value.NewExpr("stimulus", sym(s.Signal), value.OrUndefined(s.Value), ns(int64(s.At))))
	}
	items = append(items, value.NewExpr("settings",
		ns(int64(m.Settings.MaxDeltaCycles)),
		ns(int64(m.Settings.MaxRewrites)),
		value.Bool(!m.Settings.NoBuiltins)))

	return value.NewExpr("model", sym(m.Name), value.NewList(items...))
}

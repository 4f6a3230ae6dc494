package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"

	"github.com/roach88/deltasim/internal/graph"
	"github.com/roach88/deltasim/internal/netlist"
	"github.com/roach88/deltasim/internal/theorem"
)

// CompileModel parses a CUE model value into a netlist.Model.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a model file:
//
//	model: "inverter"
//	signal: a: initial: false
//	signal: y: {}
//	process: inv: {output: "y", inputs: ["a"], expr: {head: "not", args: ["?a"]}, aspect: "simplify"}
//	stimulus: [{signal: "a", value: true, at: "5ns"}]
//
// Fields are read in declaration order; theorem order is registration
// order, which decides ties between equal priorities. fallbackName names
// the model when it has no model field. The result is not validated; call
// Model.Validate for reference checks.
func CompileModel(v cue.Value, fallbackName string) (*netlist.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &netlist.Model{Name: fallbackName}

	if name, ok, err := stringField(v, "model", "model"); err != nil {
		return nil, err
	} else if ok {
		m.Name = name
	}

	var err error
	if m.Signals, err = parseSignals(v); err != nil {
		return nil, err
	}
	if m.Buses, err = parseBuses(v); err != nil {
		return nil, err
	}
	if m.Processes, err = parseProcesses(v); err != nil {
		return nil, err
	}
	if m.Theorems, err = parseTheorems(v); err != nil {
		return nil, err
	}
	if m.Simplify, err = parseSimplify(v); err != nil {
		return nil, err
	}
	if m.Stimuli, err = parseStimuli(v); err != nil {
		return nil, err
	}
	if m.Settings, err = parseSettings(v); err != nil {
		return nil, err
	}
	return m, nil
}

// eachField calls fn for every regular field of v.path, if present.
func eachField(v cue.Value, path string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

// eachElem calls fn for every element of the list v.path, if present.
func eachElem(v cue.Value, path string, fn func(i int, ev cue.Value) error) error {
	lv := v.LookupPath(cue.ParsePath(path))
	if !lv.Exists() {
		return nil
	}
	iter, err := lv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		if err := fn(i, iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	s, ok, err := stringField(v, name, field)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fieldError(field+"."+name, v.Pos(), "%s is required", name)
	}
	return s, nil
}

func parseSignals(v cue.Value) ([]netlist.SignalDecl, error) {
	var out []netlist.SignalDecl
	err := eachField(v, "signal", func(name string, sv cue.Value) error {
		decl := netlist.SignalDecl{Name: name}
		if init := sv.LookupPath(cue.ParsePath("initial")); init.Exists() {
			iv, err := compileValue(init, "signal."+name+".initial")
			if err != nil {
				return err
			}
			decl.Initial = iv
		}
		out = append(out, decl)
		return nil
	})
	return out, err
}

func parseBuses(v cue.Value) ([]netlist.BusDecl, error) {
	var out []netlist.BusDecl
	err := eachField(v, "bus", func(name string, bv cue.Value) error {
		bus := netlist.BusDecl{Name: name}
		err := eachElem(bv, "ports", func(i int, pv cue.Value) error {
			field := fmt.Sprintf("bus.%s.ports[%d]", name, i)
			pname, err := requiredString(pv, "name", field)
			if err != nil {
				return err
			}
			sig, err := requiredString(pv, "signal", field)
			if err != nil {
				return err
			}
			dirText, _, err := stringField(pv, "direction", field)
			if err != nil {
				return err
			}
			dir, err := graph.ParseDirection(dirText)
			if err != nil {
				return fieldError(field+".direction", pv.Pos(), "%v", err)
			}
			bus.Ports = append(bus.Ports, netlist.PortDecl{Name: pname, Signal: sig, Direction: dir})
			return nil
		})
		if err != nil {
			return err
		}
		out = append(out, bus)
		return nil
	})
	return out, err
}

func parseProcesses(v cue.Value) ([]netlist.ProcessDecl, error) {
	var out []netlist.ProcessDecl
	err := eachField(v, "process", func(name string, pv cue.Value) error {
		field := "process." + name
		proc := netlist.ProcessDecl{Name: name}

		var err error
		if proc.Output, err = requiredString(pv, "output", field); err != nil {
			return err
		}
		err = eachElem(pv, "inputs", func(i int, iv cue.Value) error {
			in, err := iv.String()
			if err != nil {
				return fieldError(fmt.Sprintf("%s.inputs[%d]", field, i), iv.Pos(), "input must be a signal name")
			}
			proc.Inputs = append(proc.Inputs, in)
			return nil
		})
		if err != nil {
			return err
		}

		ev := pv.LookupPath(cue.ParsePath("expr"))
		if !ev.Exists() {
			return fieldError(field+".expr", pv.Pos(), "expr is required")
		}
		if proc.Expr, err = compileValue(ev, field+".expr"); err != nil {
			return err
		}

		aspect, _, err := stringField(pv, "aspect", field)
		if err != nil {
			return err
		}
		proc.Aspect = theorem.Aspect(aspect)

		if proc.Delay, err = durationField(pv, "delay", field); err != nil {
			return err
		}
		out = append(out, proc)
		return nil
	})
	return out, err
}

func parseTheorems(v cue.Value) ([]*theorem.Theorem, error) {
	var out []*theorem.Theorem
	err := eachField(v, "theorem", func(id string, tv cue.Value) error {
		field := "theorem." + id
		th := &theorem.Theorem{ID: id, Aspect: theorem.AspectSimplify}

		aspect, ok, err := stringField(tv, "aspect", field)
		if err != nil {
			return err
		}
		if ok {
			th.Aspect = theorem.Aspect(aspect)
		}

		if pr := tv.LookupPath(cue.ParsePath("priority")); pr.Exists() {
			n, err := pr.Int64()
			if err != nil {
				return fieldError(field+".priority", pr.Pos(), "priority must be an integer")
			}
			th.Priority = int(n)
		}

		pv := tv.LookupPath(cue.ParsePath("pattern"))
		if !pv.Exists() {
			return fieldError(field+".pattern", tv.Pos(), "pattern is required")
		}
		if th.Pattern, err = compilePattern(pv, field+".pattern"); err != nil {
			return err
		}

		rv := tv.LookupPath(cue.ParsePath("rewrite"))
		if !rv.Exists() {
			return fieldError(field+".rewrite", tv.Pos(), "rewrite is required")
		}
		if th.Rewrite, err = compileValue(rv, field+".rewrite"); err != nil {
			return err
		}
		out = append(out, th)
		return nil
	})
	return out, err
}

func parseSimplify(v cue.Value) ([]netlist.SimplifyDecl, error) {
	var out []netlist.SimplifyDecl
	err := eachElem(v, "simplify", func(i int, sv cue.Value) error {
		field := fmt.Sprintf("simplify[%d]", i)
		sig, err := requiredString(sv, "signal", field)
		if err != nil {
			return err
		}
		decl := netlist.SimplifyDecl{Signal: sig, Aspect: theorem.AspectSimplify}
		if aspect, ok, err := stringField(sv, "aspect", field); err != nil {
			return err
		} else if ok {
			decl.Aspect = theorem.Aspect(aspect)
		}
		out = append(out, decl)
		return nil
	})
	return out, err
}

func parseStimuli(v cue.Value) ([]netlist.Stimulus, error) {
	var out []netlist.Stimulus
	err := eachElem(v, "stimulus", func(i int, sv cue.Value) error {
		field := fmt.Sprintf("stimulus[%d]", i)
		sig, err := requiredString(sv, "signal", field)
		if err != nil {
			return err
		}
		vv := sv.LookupPath(cue.ParsePath("value"))
		if !vv.Exists() {
			return fieldError(field+".value", sv.Pos(), "value is required")
		}
		val, err := compileValue(vv, field+".value")
		if err != nil {
			return err
		}
		at, err := durationField(sv, "at", field)
		if err != nil {
			return err
		}
		out = append(out, netlist.Stimulus{Signal: sig, Value: val, At: at})
		return nil
	})
	return out, err
}

func parseSettings(v cue.Value) (netlist.Settings, error) {
	var s netlist.Settings
	sv := v.LookupPath(cue.ParsePath("simulation"))
	if !sv.Exists() {
		return s, nil
	}

	intField := func(name string) (int, error) {
		f := sv.LookupPath(cue.MakePath(cue.Str(name)))
		if !f.Exists() {
			return 0, nil
		}
		n, err := f.Int64()
		if err != nil {
			return 0, fieldError("simulation."+name, f.Pos(), "%s must be an integer", name)
		}
		return int(n), nil
	}

	var err error
	if s.MaxDeltaCycles, err = intField("max_delta_cycles"); err != nil {
		return s, err
	}
	if s.MaxRewrites, err = intField("max_rewrites"); err != nil {
		return s, err
	}
	if b := sv.LookupPath(cue.ParsePath("builtins")); b.Exists() {
		on, err := b.Bool()
		if err != nil {
			return s, fieldError("simulation.builtins", b.Pos(), "builtins must be a bool")
		}
		s.NoBuiltins = !on
	}
	return s, nil
}

// durationField reads a duration written as a Go duration string ("5ns",
// "1.5s") or as an integer count of nanoseconds. Absent means zero.
func durationField(v cue.Value, name, field string) (time.Duration, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return 0, nil
	}
	switch f.Kind() {
	case cue.IntKind:
		n, err := f.Int64()
		if err != nil {
			return 0, fieldError(field+"."+name, f.Pos(), "%v", err)
		}
		return time.Duration(n), nil
	case cue.StringKind:
		s, _ := f.String()
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fieldError(field+"."+name, f.Pos(), "%v", err)
		}
		return d, nil
	default:
		return 0, fieldError(field+"."+name, f.Pos(), "duration must be a string like \"5ns\" or integer nanoseconds")
	}
}

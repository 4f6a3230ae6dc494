package netlist

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/deltasim/internal/value"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateName    = "E101" // name used twice across signals, buses and ports
	ErrUnknownSignal    = "E102" // reference to an undeclared signal
	ErrUnboundVariable  = "E103" // expression variable that is not an input
	ErrNegativeDuration = "E104" // negative delay or stimulus time
	ErrInvalidTheorem   = "E105" // malformed or duplicate theorem
	ErrMissingField     = "E106" // required field absent or empty
	ErrInvalidSettings  = "E107" // negative simulation bound
)

// ValidationError is one problem found in a model.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks names are unique and every reference resolves. All
// problems are reported together, joined into one error.
func (m *Model) Validate() error {
	problems := m.Check()
	if len(problems) == 0 {
		return nil
	}
	errs := make([]error, len(problems))
	for i, p := range problems {
		errs[i] = p
	}
	return errors.Join(errs...)
}

// Check returns every validation problem in declaration order.
// Does not fail fast.
func (m *Model) Check() []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	names := make(map[string]string)
	claim := func(field, name, kind string) {
		if name == "" {
			add(ErrMissingField, field, "%s name is required", kind)
			return
		}
		if prev, ok := names[name]; ok {
			add(ErrDuplicateName, field, "%s %q: name already used by a %s", kind, name, prev)
			return
		}
		names[name] = kind
	}

	signals := make(map[string]bool, len(m.Signals))
	for i, s := range m.Signals {
		claim(fmt.Sprintf("signals[%d].name", i), s.Name, "signal")
		signals[s.Name] = true
	}
	needSignal := func(field, name string) {
		if !signals[name] {
			add(ErrUnknownSignal, field, "unknown signal %q", name)
		}
	}

	for i, b := range m.Buses {
		claim(fmt.Sprintf("buses[%d].name", i), b.Name, "bus")
		for j, p := range b.Ports {
			claim(fmt.Sprintf("buses[%d].ports[%d].name", i, j), p.Name, "port")
			needSignal(fmt.Sprintf("buses[%d].ports[%d].signal", i, j), p.Signal)
		}
	}

	ids := make(map[string]bool)
	for i, t := range m.Theorems {
		field := fmt.Sprintf("theorems[%d]", i)
		if err := t.Validate(); err != nil {
			add(ErrInvalidTheorem, field, "%v", err)
		}
		if ids[t.ID] {
			add(ErrInvalidTheorem, field, "theorem %q declared twice", t.ID)
		}
		ids[t.ID] = true
	}

	procs := make(map[string]bool)
	for i, p := range m.Processes {
		field := fmt.Sprintf("processes[%d]", i)
		if p.Name == "" {
			add(ErrMissingField, field+".name", "process name is required")
		} else if procs[p.Name] {
			add(ErrDuplicateName, field+".name", "process %q declared twice", p.Name)
		}
		procs[p.Name] = true
		needSignal(field+".output", p.Output)
		for j, in := range p.Inputs {
			needSignal(fmt.Sprintf("%s.inputs[%d]", field, j), in)
		}
		if p.Delay < 0 {
			add(ErrNegativeDuration, field+".delay", "negative delay %s", p.Delay)
		}
		if p.Expr == nil {
			add(ErrMissingField, field+".expr", "process %q has no expression", p.Name)
			continue
		}
		for _, v := range value.Vars(p.Expr) {
			if !slices.Contains(p.Inputs, v) {
				add(ErrUnboundVariable, field+".expr", "expression uses %q which is not an input", v)
			}
		}
	}

	for i, s := range m.Simplify {
		field := fmt.Sprintf("simplify[%d]", i)
		needSignal(field+".signal", s.Signal)
		if s.Aspect == "" {
			add(ErrMissingField, field+".aspect", "aspect is required")
		}
	}
	for i, s := range m.Stimuli {
		field := fmt.Sprintf("stimuli[%d]", i)
		needSignal(field+".signal", s.Signal)
		if s.At < 0 {
			add(ErrNegativeDuration, field+".at", "negative time %s", s.At)
		}
	}
	if m.Settings.MaxDeltaCycles < 0 {
		add(ErrInvalidSettings, "settings.max_delta_cycles", "must not be negative")
	}
	if m.Settings.MaxRewrites < 0 {
		add(ErrInvalidSettings, "settings.max_rewrites", "must not be negative")
	}
	return errs
}

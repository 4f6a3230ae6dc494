package reactive

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/theorem"
	"github.com/roach88/deltasim/internal/value"
)

// DefaultMaxRewrites bounds the rewrite passes spent on one value.
const DefaultMaxRewrites = 64

// Process computes Output from Inputs.
//
// Expr is a template whose value.Var placeholders name input signals. When
// any input changes, the template is filled with the inputs' current values,
// rewritten to a fixpoint under Aspect (no rewriting when Aspect is empty)
// and scheduled on Output after Delay. A zero-delay result is not scheduled
// when it equals the value the output will hold once the process's pending
// events land: the last value the process scheduled, or the output's current
// value when nothing is pending.
type Process struct {
	Name   string
	Output *engine.Signal
	Inputs []*engine.Signal
	Expr   value.Value
	Aspect theorem.Aspect
	Delay  time.Duration
}

// RewriteLimitError is returned when rewriting does not reach a fixpoint.
type RewriteLimitError struct {
	Aspect theorem.Aspect
	Value  string
	Limit  int
}

func (e *RewriteLimitError) Error() string {
	return fmt.Sprintf("rewriting %s under aspect %q did not settle within %d passes", e.Value, e.Aspect, e.Limit)
}

// Evaluator wires processes and auto-simplified signals to a scheduler.
type Evaluator struct {
	sched       *engine.Scheduler
	provider    *theorem.Provider
	maxRewrites int
	logger      *slog.Logger

	processes []*driver
	unsubs    []func()
}

// driver tracks the zero-delay events a process has in flight.
type driver struct {
	proc    Process
	pending int
	last    value.Value
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxRewrites sets the rewrite pass bound. Default: 64.
func WithMaxRewrites(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxRewrites = n
		}
	}
}

// WithLogger sets the evaluator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator creates an Evaluator. provider may be nil when no process
// or signal uses an aspect.
func NewEvaluator(s *engine.Scheduler, p *theorem.Provider, opts ...Option) *Evaluator {
	e := &Evaluator{
		sched:       s,
		provider:    p,
		maxRewrites: DefaultMaxRewrites,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	s.OnRollback(func(int) {
		for _, d := range e.processes {
			d.pending, d.last = 0, nil
		}
	})
	return e
}

// Processes returns the registered processes in registration order.
func (e *Evaluator) Processes() []Process {
	out := make([]Process, len(e.processes))
	for i, d := range e.processes {
		out[i] = d.proc
	}
	return out
}

// AddProcess validates proc, subscribes it to its inputs and schedules its
// initial evaluation in the current instant.
func (e *Evaluator) AddProcess(proc Process) error {
	if err := e.validate(proc); err != nil {
		return err
	}
	proc.Inputs = slices.Clone(proc.Inputs)
	d := &driver{proc: proc}
	e.processes = append(e.processes, d)

	trigger := engine.ListenerFunc(func(*engine.Signal, value.Value) {
		e.fire(d)
	})
	for _, in := range proc.Inputs {
		e.unsubs = append(e.unsubs, in.Subscribe(trigger))
	}
	e.fire(d)
	return nil
}

func (e *Evaluator) validate(proc Process) error {
	if proc.Output == nil {
		return fmt.Errorf("process %q: nil output", proc.Name)
	}
	if proc.Delay < 0 {
		return fmt.Errorf("process %q: %w", proc.Name, engine.NewInvalidDelayError("delay", proc.Delay))
	}
	if proc.Aspect != "" && e.provider == nil {
		return fmt.Errorf("process %q: aspect %q needs a theorem provider", proc.Name, proc.Aspect)
	}
	inputs := make(map[string]value.Value, len(proc.Inputs))
	for _, in := range proc.Inputs {
		if in == nil {
			return fmt.Errorf("process %q: nil input", proc.Name)
		}
		inputs[in.Name()] = value.Undefined{}
	}
	if proc.Expr == nil {
		return fmt.Errorf("process %q: nil expression", proc.Name)
	}
	if err := value.Unbound(proc.Expr, inputs); err != nil {
		return fmt.Errorf("process %q: %w", proc.Name, err)
	}
	return nil
}

// Evaluate computes the value proc would drive now.
func (e *Evaluator) Evaluate(proc Process) (value.Value, error) {
	bindings := make(map[string]value.Value, len(proc.Inputs))
	for _, in := range proc.Inputs {
		bindings[in.Name()] = in.Value()
	}
	return e.Simplify(proc.Aspect, value.Substitute(proc.Expr, bindings))
}

func (e *Evaluator) fire(d *driver) {
	proc := d.proc
	v, err := e.Evaluate(proc)
	if err != nil {
		e.logger.Error("process evaluation failed",
			"process", proc.Name,
			"error", err)
		return
	}

	if proc.Delay > 0 {
		if err := e.sched.ScheduleDelayedEvent(proc.Output, v, proc.Delay); err != nil {
			e.logger.Error("process schedule failed",
				"process", proc.Name,
				"output", proc.Output.Name(),
				"error", err)
		}
		return
	}

	expected := proc.Output.Value()
	if d.pending > 0 {
		expected = d.last
	}
	if value.Equal(v, expected) {
		return
	}
	err = e.sched.ScheduleDeltaComputation(proc.Output, func() (value.Value, error) {
		d.pending--
		return v, nil
	})
	if err != nil {
		e.logger.Error("process schedule failed",
			"process", proc.Name,
			"output", proc.Output.Name(),
			"error", err)
		return
	}
	d.pending++
	d.last = v
}

// AutoSimplify re-evaluates sig under aspect whenever it changes, and
// schedules a delta event when the rewritten value differs. The current
// value is checked immediately.
func (e *Evaluator) AutoSimplify(sig *engine.Signal, aspect theorem.Aspect) error {
	if sig == nil {
		return fmt.Errorf("auto-simplify: nil signal")
	}
	if e.provider == nil {
		return fmt.Errorf("auto-simplify %q: no theorem provider", sig.Name())
	}
	l := engine.ListenerFunc(func(s *engine.Signal, _ value.Value) {
		e.simplifySignal(s, aspect)
	})
	e.unsubs = append(e.unsubs, sig.Subscribe(l))
	e.simplifySignal(sig, aspect)
	return nil
}

func (e *Evaluator) simplifySignal(sig *engine.Signal, aspect theorem.Aspect) {
	cur := sig.Value()
	v, err := e.Simplify(aspect, cur)
	if err != nil {
		e.logger.Warn("auto-simplify left value unsimplified",
			"signal", sig.Name(),
			"error", err)
		return
	}
	if value.Equal(v, cur) {
		return
	}
	if err := e.sched.ScheduleDeltaEvent(sig, v); err != nil {
		e.logger.Error("auto-simplify schedule failed",
			"signal", sig.Name(),
			"error", err)
	}
}

// Simplify rewrites v under aspect until no theorem applies. An empty
// aspect returns v unchanged.
func (e *Evaluator) Simplify(aspect theorem.Aspect, v value.Value) (value.Value, error) {
	v = value.OrUndefined(v)
	if aspect == "" {
		return v, nil
	}
	if e.provider == nil {
		return nil, fmt.Errorf("simplify under aspect %q: no theorem provider", aspect)
	}
	for i := 0; i < e.maxRewrites; i++ {
		next, changed := e.provider.Rewrite(aspect, v)
		if !changed {
			return v, nil
		}
		v = next
	}
	return nil, &RewriteLimitError{Aspect: aspect, Value: v.String(), Limit: e.maxRewrites}
}

// Close unsubscribes every listener the evaluator registered.
func (e *Evaluator) Close() {
	for _, u := range e.unsubs {
		u()
	}
	e.unsubs = nil
}

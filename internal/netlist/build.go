package netlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/graph"
	"github.com/roach88/deltasim/internal/reactive"
	"github.com/roach88/deltasim/internal/theorem"
	"github.com/roach88/deltasim/internal/value"
)

// Simulation is an instantiated model.
type Simulation struct {
	Model     *Model
	Scheduler *engine.Scheduler
	Network   *graph.Network
	Provider  *theorem.Provider
	Evaluator *reactive.Evaluator
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	logger *slog.Logger
	setup  []func(*engine.Scheduler)
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// WithSchedulerHook runs fn on the scheduler before any event is scheduled,
// so observers attached there see the whole run.
func WithSchedulerHook(fn func(*engine.Scheduler)) BuildOption {
	return func(c *buildConfig) { c.setup = append(c.setup, fn) }
}

// Build validates m and instantiates it. Instantiation order is: signals,
// buses and ports, theorems, processes (each scheduling its initial
// evaluation), auto-simplified signals, then stimuli.
func Build(m *Model, opts ...BuildOption) (*Simulation, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model %q: %w", m.Name, err)
	}
	cfg := buildConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	schedOpts := []engine.SchedulerOption{engine.WithLogger(cfg.logger)}
	if m.Settings.MaxDeltaCycles > 0 {
		schedOpts = append(schedOpts, engine.WithMaxDeltaCycles(m.Settings.MaxDeltaCycles))
	}
	sched := engine.NewScheduler(schedOpts...)
	for _, fn := range cfg.setup {
		fn(sched)
	}

	net := graph.NewNetwork(sched)
	signals := make(map[string]*engine.Signal, len(m.Signals))
	for _, d := range m.Signals {
		sig, err := net.AddSignal(d.Name, d.Initial)
		if err != nil {
			return nil, err
		}
		signals[d.Name] = sig
	}
	for _, d := range m.Buses {
		bus, err := net.AddBus(d.Name)
		if err != nil {
			return nil, err
		}
		for _, pd := range d.Ports {
			port, err := net.AddPort(pd.Name, pd.Direction, d.Name)
			if err != nil {
				return nil, err
			}
			if err := port.Connect(signals[pd.Signal]); err != nil {
				return nil, err
			}
			if err := bus.Add(port); err != nil {
				return nil, err
			}
		}
	}

	prov := theorem.NewProvider(theorem.WithLogger(cfg.logger))
	if !m.Settings.NoBuiltins {
		prov.MustAdd(theorem.Builtins()...)
	}
	for _, t := range m.Theorems {
		if _, err := prov.Add(t); err != nil {
			return nil, err
		}
	}

	evalOpts := []reactive.Option{reactive.WithLogger(cfg.logger)}
	if m.Settings.MaxRewrites > 0 {
		evalOpts = append(evalOpts, reactive.WithMaxRewrites(m.Settings.MaxRewrites))
	}
	eval := reactive.NewEvaluator(sched, prov, evalOpts...)
	for _, d := range m.Processes {
		inputs := make([]*engine.Signal, len(d.Inputs))
		for i, name := range d.Inputs {
			inputs[i] = signals[name]
		}
		err := eval.AddProcess(reactive.Process{
			Name:   d.Name,
			Output: signals[d.Output],
			Inputs: inputs,
			Expr:   d.Expr,
			Aspect: d.Aspect,
			Delay:  d.Delay,
		})
		if err != nil {
			return nil, err
		}
	}
	for _, d := range m.Simplify {
		if err := eval.AutoSimplify(signals[d.Signal], d.Aspect); err != nil {
			return nil, err
		}
	}

	for _, st := range m.Stimuli {
		if err := sched.ScheduleDelayedEvent(signals[st.Signal], st.Value, st.At); err != nil {
			return nil, fmt.Errorf("stimulus on %q: %w", st.Signal, err)
		}
	}

	cfg.logger.Debug("model instantiated",
		"model", m.Name,
		"signals", len(m.Signals),
		"buses", len(m.Buses),
		"processes", len(m.Processes),
		"theorems", prov.Len(),
		"stimuli", len(m.Stimuli))

	return &Simulation{
		Model:     m,
		Scheduler: sched,
		Network:   net,
		Provider:  prov,
		Evaluator: eval,
	}, nil
}

// RunFor simulates up to span, one instant at a time, checking ctx between
// instants. It returns the simulated time, as SimulateFor does.
func (s *Simulation) RunFor(ctx context.Context, span time.Duration) (time.Duration, error) {
	sched := s.Scheduler
	start := sched.SimulationTime()
	deadline := start + span
	if span < 0 {
		return 0, engine.NewInvalidDelayError("span", span)
	}
	for {
		if err := ctx.Err(); err != nil {
			return sched.SimulationTime() - start, err
		}
		next, ok := sched.NextEventTime()
		if !ok || next > deadline {
			_, err := sched.SimulateFor(deadline - sched.SimulationTime())
			return sched.SimulationTime() - start, err
		}
		if _, err := sched.SimulateFor(next - sched.SimulationTime()); err != nil {
			return sched.SimulationTime() - start, err
		}
	}
}

// RunCycles simulates the current instant and at most n further instants,
// checking ctx between instants.
func (s *Simulation) RunCycles(ctx context.Context, n int) (time.Duration, error) {
	sched := s.Scheduler
	start := sched.SimulationTime()
	if n < 0 {
		_, err := sched.SimulateCycles(n)
		return 0, err
	}
	if _, err := sched.SimulateCycles(0); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return sched.SimulationTime() - start, err
		}
		if _, ok := sched.NextEventTime(); !ok {
			break
		}
		if _, err := sched.SimulateCycles(1); err != nil {
			return sched.SimulationTime() - start, err
		}
	}
	return sched.SimulationTime() - start, nil
}

// SignalValue is a named value in a snapshot.
type SignalValue struct {
	Name  string
	Value value.Value
}

// Snapshot returns every signal's current value in declaration order.
func (s *Simulation) Snapshot() []SignalValue {
	sigs := s.Scheduler.Signals()
	out := make([]SignalValue, len(sigs))
	for i, sig := range sigs {
		out[i] = SignalValue{Name: sig.Name(), Value: sig.Value()}
	}
	return out
}

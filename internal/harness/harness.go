package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/deltasim/internal/compiler"
	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/netlist"
	"github.com/roach88/deltasim/internal/value"
)

// Harness is the scenario execution state for a single run.
type Harness struct {
	sim    *netlist.Simulation
	rec    *engine.TraceRecorder
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario builds a fresh simulation. Execution flow:
// 1. Compile the model and add the scenario's stimuli
// 2. Build the simulation with a trace recorder attached
// 3. Run the steps in order
// 4. Evaluate assertions against the trace and final values
//
// Model and build failures are returned as errors. A step that diverges
// unexpectedly, or fails to diverge when it should, fails the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a context checked between instants.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	model, err := LoadModel(scenario)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		rec:    engine.NewTraceRecorder(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.sim, err = netlist.Build(model,
		netlist.WithLogger(h.logger),
		netlist.WithSchedulerHook(h.rec.Attach))
	if err != nil {
		return nil, fmt.Errorf("failed to build model: %w", err)
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, err
	}

	result.Trace = h.rec.Assignments()
	result.Final = h.sim.Snapshot()
	result.Time = h.sim.Scheduler.SimulationTime()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// LoadModel compiles the scenario's model and appends its stimuli.
func LoadModel(scenario *Scenario) (*netlist.Model, error) {
	var model *netlist.Model
	if scenario.ModelCUE != "" {
		m, err := compiler.CompileString(scenario.ModelCUE, scenario.Name+".cue")
		if err != nil {
			return nil, fmt.Errorf("failed to compile model: %w", err)
		}
		model = m
	} else {
		res, err := compiler.LoadDir(scenario.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to load model: %w", err)
		}
		model = res.Model
	}

	for i, st := range scenario.Stimuli {
		v, err := value.FromGo(st.Value)
		if err != nil {
			return nil, fmt.Errorf("stimuli[%d].value: %w", i, err)
		}
		at, err := parseTime(st.At)
		if err != nil {
			return nil, fmt.Errorf("stimuli[%d].at: %w", i, err)
		}
		model.Stimuli = append(model.Stimuli, netlist.Stimulus{Signal: st.Signal, Value: v, At: at})
	}
	return model, nil
}

// executeSteps runs every step. A step failure is recorded on the result
// and ends the run; context cancellation is returned as an error.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		from := h.sim.Scheduler.SimulationTime()
		var err error
		if step.Cycles != nil {
			_, err = h.sim.RunCycles(ctx, *step.Cycles)
		} else {
			span, perr := parseTime(step.For)
			if perr != nil {
				return fmt.Errorf("steps[%d].for: %w", i, perr)
			}
			_, err = h.sim.RunFor(ctx, span)
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		switch {
		case step.ExpectDivergence && engine.IsDivergent(err):
			h.logger.Info("step diverged as expected", "step", i, "error", err)
		case step.ExpectDivergence:
			result.AddError(fmt.Sprintf("steps[%d]: expected divergent simulation, got %v", i, err))
			return nil
		case err != nil:
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			return nil
		}

		h.logger.Info("step completed",
			"step", i,
			"from", from,
			"to", h.sim.Scheduler.SimulationTime(),
			"assignments", h.rec.Len())
	}
	return nil
}

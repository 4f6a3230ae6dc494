package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/netlist"
	"github.com/roach88/deltasim/internal/store"
	"github.com/roach88/deltasim/internal/value"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	For      time.Duration
	Cycles   int
	Database string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// SignalState is a signal's value in command output.
type SignalState struct {
	Signal string `json:"signal"`
	Value  string `json:"value"`
}

// SimulationResult holds the outcome of one simulation run.
type SimulationResult struct {
	RunID       string        `json:"run_id,omitempty"`
	Model       string        `json:"model"`
	ModelHash   string        `json:"model_hash"`
	Elapsed     string        `json:"elapsed"`
	Time        string        `json:"time"`
	Assignments int           `json:"assignments"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Final       []SignalState `json:"final"`
	Stats       engine.Stats  `json:"stats"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	return newSimulateCommand(&SimulateOptions{RootOptions: rootOpts})
}

func newSimulateCommand(opts *SimulateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <model-dir>",
		Short: "Simulate a model",
		Long: `Simulate a CUE model for a span of simulated time or a number of
instants and print the final signal values.

With --db the run and its full assignment trace are recorded in a SQLite
database (created if it doesn't exist) under a new run id, for later
trace queries and replay.

Examples:
  deltasim simulate --for 1us ./models/latch
  deltasim simulate --cycles 10 --db ./runs.db ./models/half_adder
  deltasim simulate --for 30s --format json ./models/half_adder`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.For, "for", 0, "simulated time to run")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "number of instants to run after the current one")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record the run in")
	cmd.MarkFlagsOneRequired("for", "cycles")
	cmd.MarkFlagsMutuallyExclusive("for", "cycles")

	return cmd
}

func runSimulate(opts *SimulateOptions, modelDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	useCycles := cmd.Flags().Changed("cycles")

	if opts.For < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, fmt.Sprintf("--for must be non-negative, got %s", opts.For), nil)
	}
	if opts.Cycles < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, fmt.Sprintf("--cycles must be non-negative, got %d", opts.Cycles), nil)
	}

	res, err := loadModel(formatter, modelDir)
	if err != nil {
		return err
	}
	m := res.Model

	rec := engine.NewTraceRecorder()
	sim, err := netlist.Build(m, netlist.WithLogger(logger), netlist.WithSchedulerHook(rec.Attach))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation, "failed to build model", err)
	}

	var st *store.Store
	run := store.Run{Model: m.Name, ModelHash: m.Hash(), Span: opts.For}
	if opts.Database != "" {
		st, err = store.Open(opts.Database, store.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		gen := opts.RunIDs
		if gen == nil {
			gen = engine.UUIDv7Generator{}
		}
		run.ID = gen.Generate()
		if err := st.WriteRun(cmdContext(cmd), run); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("simulation starting", "model", m.Name, "model_hash", run.ModelHash, "run_id", run.ID)
	var elapsed time.Duration
	if useCycles {
		elapsed, err = sim.RunCycles(ctx, opts.Cycles)
	} else {
		elapsed, err = sim.RunFor(ctx, opts.For)
	}
	endTime := sim.Scheduler.SimulationTime()
	if useCycles {
		// Replay re-runs a cycle-bounded run by time: every event up to
		// the end time was applied.
		run.Span = endTime
	}
	run.EndTime = endTime
	run.Status = runStatus(err)
	if err != nil {
		run.Error = err.Error()
	}
	trace := rec.Assignments()
	run.Assignments = len(trace)
	logger.Info("simulation stopped", "status", run.Status, "time", endTime, "assignments", len(trace))

	if st != nil {
		// Recording must finish even if the run was interrupted.
		wctx := context.WithoutCancel(ctx)
		if werr := st.WriteAssignments(wctx, run.ID, 0, trace); werr != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record trace", werr)
		}
		if werr := st.WriteRun(wctx, run); werr != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record run", werr)
		}
		formatter.VerboseLog("Recorded run %s with %d assignment(s) in %s", run.ID, len(trace), opts.Database)
	}

	result := SimulationResult{
		RunID:       run.ID,
		Model:       m.Name,
		ModelHash:   run.ModelHash,
		Elapsed:     elapsed.String(),
		Time:        endTime.String(),
		Assignments: len(trace),
		Status:      run.Status,
		Error:       run.Error,
		Final:       signalStates(sim.Snapshot()),
		Stats:       sim.Scheduler.Stats(),
	}
	return outputSimulation(formatter, result, err)
}

// runStatus classifies the error a run stopped with.
func runStatus(err error) string {
	switch {
	case err == nil:
		return store.StatusOK
	case engine.IsDivergent(err):
		return store.StatusDivergent
	default:
		return store.StatusFailed
	}
}

func signalStates(snap []netlist.SignalValue) []SignalState {
	out := make([]SignalState, len(snap))
	for i, sv := range snap {
		out[i] = SignalState{Signal: sv.Name, Value: value.OrUndefined(sv.Value).String()}
	}
	return out
}

func outputSimulation(formatter *OutputFormatter, result SimulationResult, runErr error) error {
	if formatter.JSON() {
		if runErr != nil {
			if err := formatter.Failure(ErrCodeSimulation, runErr.Error(), result); err != nil {
				return err
			}
			return WrapExitError(ExitFailure, "simulation failed", runErr)
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	status := "✓"
	if runErr != nil {
		status = "✗"
	}
	fmt.Fprintf(w, "%s Model %s: %s\n", status, result.Model, result.Status)
	if result.RunID != "" {
		fmt.Fprintf(w, "  Run: %s\n", result.RunID)
	}
	fmt.Fprintf(w, "  Time: %s (simulated %s)\n", result.Time, result.Elapsed)
	fmt.Fprintf(w, "  Assignments: %d in %d instant(s), max %d delta cycle(s)\n",
		result.Assignments, result.Stats.Instants, result.Stats.MaxDeltaCycles)
	for _, s := range result.Final {
		fmt.Fprintf(w, "  %s = %s\n", s.Signal, s.Value)
	}
	if runErr != nil {
		fmt.Fprintf(w, "  Error: %s\n", result.Error)
		return WrapExitError(ExitFailure, "simulation failed", runErr)
	}
	return nil
}

// cmdContext returns the command's context, or Background when the
// command was executed without one.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/netlist"
	"github.com/roach88/deltasim/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database         string
	RunID            string
	AllowModelChange bool
}

// ReplayResult holds the outcome of a replay.
type ReplayResult struct {
	RunID          string            `json:"run_id"`
	Model          string            `json:"model"`
	ModelHash      string            `json:"model_hash"`
	RecordedHash   string            `json:"recorded_model_hash"`
	Span           string            `json:"span"`
	RecordedStatus string            `json:"recorded_status"`
	ReplayStatus   string            `json:"replay_status"`
	Recorded       int               `json:"recorded_assignments"`
	Replayed       int               `json:"replayed_assignments"`
	Match          bool              `json:"match"`
	Divergence     *store.Divergence `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <model-dir>",
		Short: "Re-simulate a recorded run and compare traces",
		Long: `Re-simulate a recorded run from its model and compare the new trace
with the recorded one, assignment by assignment, on simulated time, delta
cycle, signal and value.

Simulation is deterministic, so any difference means the model or the
simulator changed. The model's hash must match the one recorded with the
run unless --allow-model-change is given.

Exit codes:
  0  traces match
  1  traces differ
  2  command error (unknown run, model mismatch, etc.)

Examples:
  deltasim replay --db ./runs.db --run 0190a6c4-... ./models/latch`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (required)")
	cmd.Flags().BoolVar(&opts.AllowModelChange, "allow-model-change", false, "replay even if the model hash differs")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("run")

	return cmd
}

func runReplay(opts *ReplayOptions, modelDir string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	if run.Status == store.StatusRunning {
		return formatter.Fail(ExitCommandError, ErrCodeReplay, fmt.Sprintf("run %s was never finished", run.ID), nil)
	}

	res, err := loadModel(formatter, modelDir)
	if err != nil {
		return err
	}
	m := res.Model
	hash := m.Hash()
	if hash != run.ModelHash {
		if !opts.AllowModelChange {
			return formatter.Fail(ExitCommandError, ErrCodeReplay,
				fmt.Sprintf("model hash %s does not match recorded %s", hash, run.ModelHash), nil)
		}
		logger.Warn("model changed since recording", "run_id", run.ID, "model_hash", hash, "recorded_hash", run.ModelHash)
	}

	recorded, err := st.ReadAssignments(ctx, run.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read trace", err)
	}

	rec := engine.NewTraceRecorder()
	sim, err := netlist.Build(m, netlist.WithLogger(logger), netlist.WithSchedulerHook(rec.Attach))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeSimulation, "failed to build model", err)
	}

	span := replaySpan(run)
	logger.Info("replay starting", "run_id", run.ID, "span", span, "recorded", len(recorded))
	_, runErr := sim.RunFor(ctx, span)
	if runErr != nil && ctx.Err() != nil {
		return formatter.Fail(ExitCommandError, ErrCodeReplay, "replay interrupted", runErr)
	}
	replayed := rec.Assignments()

	result := ReplayResult{
		RunID:          run.ID,
		Model:          m.Name,
		ModelHash:      hash,
		RecordedHash:   run.ModelHash,
		Span:           span.String(),
		RecordedStatus: run.Status,
		ReplayStatus:   runStatus(runErr),
		Recorded:       len(recorded),
		Replayed:       len(replayed),
		Divergence:     store.CompareTraces(recorded, replayed),
	}
	if result.Divergence == nil && result.ReplayStatus != result.RecordedStatus {
		result.Divergence = &store.Divergence{
			Ordinal:  len(replayed),
			Describe: fmt.Sprintf("run ended %s, recorded %s", result.ReplayStatus, result.RecordedStatus),
		}
	}
	result.Match = result.Divergence == nil

	return outputReplay(formatter, result)
}

// replaySpan is the simulated time to re-run. A failed run was stopped
// early, so only the instants it completed are replayed.
func replaySpan(run store.Run) time.Duration {
	if run.Status == store.StatusFailed {
		return run.EndTime
	}
	return run.Span
}

func outputReplay(formatter *OutputFormatter, result ReplayResult) error {
	if formatter.JSON() {
		if result.Match {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeReplay, result.Divergence.Describe, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay diverged")
	}

	w := formatter.Writer
	if result.Match {
		fmt.Fprintf(w, "✓ Replay of %s matches (%d assignment(s) over %s)\n", result.RunID, result.Replayed, result.Span)
		return nil
	}

	fmt.Fprintf(w, "✗ Replay of %s diverged at assignment %d\n", result.RunID, result.Divergence.Ordinal)
	fmt.Fprintf(w, "  %s\n", result.Divergence.Describe)
	fmt.Fprintf(w, "  Recorded: %d assignment(s), %s\n", result.Recorded, result.RecordedStatus)
	fmt.Fprintf(w, "  Replayed: %d assignment(s), %s\n", result.Replayed, result.ReplayStatus)
	return NewExitError(ExitFailure, "replay diverged")
}

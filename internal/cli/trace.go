package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deltasim/internal/queryir"
	"github.com/roach88/deltasim/internal/store"
	"github.com/roach88/deltasim/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Signal   string // optional - filter to one signal
	From     time.Duration
	To       time.Duration
	Limit    int
}

// TraceEntry is one assignment in the trace timeline.
type TraceEntry struct {
	Ordinal int    `json:"ordinal"`
	Seq     int64  `json:"seq"`
	Time    string `json:"time"`
	TimeNS  int64  `json:"time_ns"`
	Delta   int    `json:"delta"`
	Signal  string `json:"signal"`
	Value   string `json:"value"`
	Hash    string `json:"value_hash"`
}

// TraceResult holds the trace output for one run.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEntry `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the listed assignments.
type TraceStats struct {
	Assignments int `json:"assignments"`
	Signals     int `json:"signals"`
	Instants    int `json:"instants"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query recorded runs",
		Long: `Query the trace of a recorded run.

Without --run, lists every recorded run. With --run, prints the run's
assignments in the order they were applied, optionally filtered to one
signal and a half-open window [--from, --to) of simulated time.

Examples:
  deltasim trace --db ./runs.db
  deltasim trace --db ./runs.db --run 0190a6c4-... --signal q
  deltasim trace --db ./runs.db --run 0190a6c4-... --from 10ns --to 20ns --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "filter to one signal")
	cmd.Flags().DurationVar(&opts.From, "from", 0, "earliest simulated time (inclusive)")
	cmd.Flags().DurationVar(&opts.To, "to", 0, "latest simulated time (exclusive, 0 = unbounded)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum assignments to list (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.From < 0 || opts.To < 0 || opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "--from, --to and --limit must be non-negative", nil)
	}
	if opts.To > 0 && opts.To <= opts.From {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, fmt.Sprintf("empty window [%s, %s)", opts.From, opts.To), nil)
	}

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		return outputRuns(formatter, runs)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("run not found: %s", opts.RunID), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	records, err := st.QueryAssignments(ctx, queryir.TraceFilter{
		RunID:  opts.RunID,
		Signal: opts.Signal,
		From:   opts.From,
		To:     opts.To,
		Limit:  opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to query trace", err)
	}

	result := TraceResult{Run: run, Timeline: buildTimeline(records)}
	result.Stats = traceStats(records)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// buildTimeline converts stored records for output.
func buildTimeline(records []store.Record) []TraceEntry {
	timeline := make([]TraceEntry, len(records))
	for i, r := range records {
		timeline[i] = TraceEntry{
			Ordinal: r.Ordinal,
			Seq:     r.Seq,
			Time:    r.Time.String(),
			TimeNS:  int64(r.Time),
			Delta:   r.Delta,
			Signal:  r.Signal,
			Value:   value.OrUndefined(r.Value).String(),
			Hash:    r.ValueHash,
		}
	}
	return timeline
}

func traceStats(records []store.Record) TraceStats {
	signals := make(map[string]bool)
	instants := make(map[time.Duration]bool)
	for _, r := range records {
		signals[r.Signal] = true
		instants[r.Time] = true
	}
	return TraceStats{Assignments: len(records), Signals: len(signals), Instants: len(instants)}
}

func outputRuns(formatter *OutputFormatter, runs []store.Run) error {
	if formatter.JSON() {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-10s %-12s end %s, %d assignment(s)\n", r.ID, r.Status, r.Model, r.EndTime, r.Assignments)
	}
	return nil
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "Model: %s (%s)\n", run.Model, run.ModelHash)
	fmt.Fprintf(w, "Status: %s, end %s\n", run.Status, run.EndTime)
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No assignments match.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s+%d %s = %s\n", e.Ordinal, e.Time, e.Delta, e.Signal, e.Value)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d assignment(s), %d signal(s), %d instant(s)\n",
		result.Stats.Assignments, result.Stats.Signals, result.Stats.Instants)
	return nil
}

package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/store"
)

func TestTrace_ListRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runID := recordRun(t, dbPath, modelDir("half_adder"), "--for", "30s")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "half_adder")
	assert.Contains(t, out, "8 assignment(s)")
}

func TestTrace_ListRunsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	out, err = execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)
	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Data)
}

func TestTrace_Run(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runID := recordRun(t, dbPath, modelDir("latch"), "--for", "1us")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", runID)
	require.NoError(t, err)

	assert.Contains(t, out, "Run: "+runID)
	assert.Contains(t, out, "Model: sr_latch")
	assert.Contains(t, out, "[0] 5ns+0 r = false")
	assert.Contains(t, out, "[2] 10ns+1 qn = false")
	assert.Contains(t, out, "[3] 10ns+2 q = true")
	assert.Contains(t, out, "Stats: 5 assignment(s), 4 signal(s), 3 instant(s)")
}

func TestTrace_Filters(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runID := recordRun(t, dbPath, modelDir("half_adder"), "--for", "30s")

	tests := []struct {
		name        string
		args        []string
		assignments int
		signals     []string
	}{
		{"signal", []string{"--signal", "sum"}, 3, []string{"sum"}},
		{"window", []string{"--from", "10s", "--to", "21s"}, 4, []string{"a", "sum", "carry", "b"}},
		{"from only", []string{"--from", "21s"}, 2, []string{"sum", "carry"}},
		{"signal and window", []string{"--signal", "carry", "--from", "2s"}, 2, []string{"carry", "carry"}},
		{"limit", []string{"--limit", "3"}, 3, []string{"sum", "carry", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", dbPath, "--run", runID}, tt.args...)
			out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), args...)
			require.NoError(t, err)

			var resp struct {
				Data TraceResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.assignments, resp.Data.Stats.Assignments)

			var signals []string
			for _, e := range resp.Data.Timeline {
				signals = append(signals, e.Signal)
			}
			assert.Equal(t, tt.signals, signals)
		})
	}
}

func TestTrace_TimelineIsOrdered(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	runID := recordRun(t, dbPath, modelDir("half_adder"), "--for", "30s")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", runID)
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Timeline, 8)
	for i, e := range resp.Data.Timeline {
		assert.Equal(t, i, e.Ordinal)
		assert.NotEmpty(t, e.Hash)
	}
	assert.Equal(t, int64(21_000_000_000), resp.Data.Timeline[7].TimeNS)
}

func TestTrace_UnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: missing")
}

func TestTrace_FlagErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"empty window", []string{"--run", "r", "--from", "5s", "--to", "5s"}, "empty window"},
		{"negative limit", []string{"--run", "r", "--limit", "-1"}, "must be non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), append([]string{"--db", dbPath}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestTrace_MissingDatabaseFlag(t *testing.T) {
	_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

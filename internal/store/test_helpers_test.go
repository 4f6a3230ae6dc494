package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:        id,
		Model:     "test_model",
		ModelHash: "test-hash",
		Span:      time.Minute,
	}
}

// clockTrace is a toggling signal "clk" plus one "count" assignment per
// edge, n edges one second apart.
func clockTrace(n int) []engine.Assignment {
	var out []engine.Assignment
	seq := int64(1)
	for i := 1; i <= n; i++ {
		at := time.Duration(i) * time.Second
		out = append(out,
			engine.Assignment{Seq: seq, Time: at, Signal: "clk", Value: value.Bool(i%2 == 1)},
			engine.Assignment{Seq: seq + 1, Time: at, Delta: 1, Signal: "count", Value: value.Integer(i)},
		)
		seq += 2
	}
	return out
}

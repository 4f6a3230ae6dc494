package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// Compile-time check
var _ engine.RunIDGenerator = (*SequentialRunIDs)(nil)

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("sim")
	assert.Equal(t, "sim-1", gen.Generate())
	assert.Equal(t, "sim-2", gen.Generate())
	assert.Equal(t, int64(2), gen.Issued())

	gen.Reset()
	assert.Equal(t, int64(0), gen.Issued())
	assert.Equal(t, "sim-1", gen.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "run-1", NewSequentialRunIDs("").Generate())
}

func TestSequentialRunIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialRunIDs("")
	const goroutines = 50
	const calls = 100

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls, "every id must be unique")
	assert.Equal(t, int64(goroutines*calls), gen.Issued())
}

func TestNewScheduler_RecordsAssignments(t *testing.T) {
	s, rec := NewScheduler(engine.WithMaxDeltaCycles(5))

	sig, err := s.NewSignal("a", value.Integer(0))
	require.NoError(t, err)
	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), time.Second))

	_, err = s.SimulateFor(2 * time.Second)
	require.NoError(t, err)

	trace := rec.Assignments()
	require.Len(t, trace, 1)
	assert.Equal(t, "a", trace[0].Signal)
	assert.Equal(t, time.Second, trace[0].Time)
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	require.NotNil(t, logger)
	logger.Error("dropped", "key", "value")
}

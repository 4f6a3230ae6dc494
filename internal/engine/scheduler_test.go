package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/deltasim/internal/value"
)

func newTestScheduler(opts ...SchedulerOption) *Scheduler {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(append([]SchedulerOption{WithLogger(quiet)}, opts...)...)
}

func mustSignal(t *testing.T, s *Scheduler, name string, initial value.Value) *Signal {
	t.Helper()
	sig, err := s.NewSignal(name, initial)
	require.NoError(t, err)
	return sig
}

// relay schedules dst = src's new value as a delta event whenever src changes.
func relay(t *testing.T, s *Scheduler, src, dst *Signal) {
	t.Helper()
	src.Subscribe(ListenerFunc(func(sig *Signal, _ value.Value) {
		require.NoError(t, s.ScheduleDeltaEvent(dst, sig.Value()))
	}))
}

// =============================================================================
// Instant processing
// =============================================================================

func TestScheduler_SimulateInstant_AppliesDeltaEvent(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Symbol("A")))

	processed, err := s.SimulateInstant()
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, value.Symbol("A"), sig.Value())

	processed, err = s.SimulateInstant()
	require.NoError(t, err)
	assert.False(t, processed, "no pending events")
	assert.Equal(t, time.Duration(0), s.SimulationTime())
}

func TestScheduler_SimulateInstant_InsertionOrder(t *testing.T) {
	s := newTestScheduler()
	a := mustSignal(t, s, "a", nil)
	b := mustSignal(t, s, "b", nil)
	rec := NewTraceRecorder()
	rec.Attach(s)

	require.NoError(t, s.ScheduleDeltaEvent(b, value.Integer(1)))
	require.NoError(t, s.ScheduleDeltaEvent(a, value.Integer(2)))
	require.NoError(t, s.ScheduleDeltaEvent(b, value.Integer(3)))

	_, err := s.SimulateInstant()
	require.NoError(t, err)

	got := rec.Assignments()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Signal)
	assert.Equal(t, "a", got[1].Signal)
	assert.Equal(t, "b", got[2].Signal)
	assert.Equal(t, value.Integer(3), b.Value(), "last write wins")
}

func TestScheduler_SimulateInstant_MultiHopPropagation(t *testing.T) {
	s := newTestScheduler()
	a := mustSignal(t, s, "a", nil)
	b := mustSignal(t, s, "b", nil)
	c := mustSignal(t, s, "c", nil)
	d := mustSignal(t, s, "d", nil)
	relay(t, s, a, b)
	relay(t, s, b, c)
	relay(t, s, c, d)

	rec := NewTraceRecorder()
	rec.Attach(s)

	require.NoError(t, s.ScheduleDeltaEvent(a, value.Integer(7)))
	processed, err := s.SimulateInstant()
	require.NoError(t, err)
	require.True(t, processed)

	assert.Equal(t, value.Integer(7), d.Value(), "propagation completes within one instant")
	assert.Equal(t, 0, s.PendingDelta())

	got := rec.Assignments()
	require.Len(t, got, 4)
	for i, a := range got {
		assert.Equal(t, i, a.Delta, "hop %d runs in delta cycle %d", i, i)
		assert.Equal(t, time.Duration(0), a.Time)
	}
	assert.Equal(t, 4, s.Stats().MaxDeltaCycles)
}

func TestScheduler_ListenersNotifiedInRegistrationOrder(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", value.Integer(0))

	var calls []string
	var olds []value.Value
	sig.Subscribe(ListenerFunc(func(*Signal, value.Value) { calls = append(calls, "first") }))
	unsub := sig.Subscribe(ListenerFunc(func(*Signal, value.Value) { calls = append(calls, "second") }))
	sig.Subscribe(ListenerFunc(func(_ *Signal, old value.Value) {
		calls = append(calls, "third")
		olds = append(olds, old)
	}))

	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Integer(1)))
	_, err := s.SimulateInstant()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, calls)
	assert.Equal(t, []value.Value{value.Integer(0)}, olds)

	unsub()
	calls = nil
	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Integer(2)))
	_, err = s.SimulateInstant()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, calls)
	assert.Equal(t, []value.Value{value.Integer(0), value.Integer(1)}, olds)
	assert.Equal(t, 2, sig.ListenerCount())
}

func TestScheduler_OnAssignRunsBeforeListeners(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	var order []string
	s.OnAssign(func(Assignment) { order = append(order, "observer") })
	sig.Subscribe(ListenerFunc(func(*Signal, value.Value) { order = append(order, "listener") }))

	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Bool(true)))
	_, err := s.SimulateInstant()
	require.NoError(t, err)
	assert.Equal(t, []string{"observer", "listener"}, order)
}

// =============================================================================
// Time advance
// =============================================================================

func TestScheduler_SimulateFor_StopsAtDeadline(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", value.Symbol("old"))

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Symbol("new"), 5*time.Second))

	elapsed, err := s.SimulateFor(3 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, elapsed)
	assert.Equal(t, 3*time.Second, s.SimulationTime())
	assert.Equal(t, value.Symbol("old"), sig.Value(), "nothing due yet")

	elapsed, err = s.SimulateFor(3 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, elapsed, "events ran out before the deadline")
	assert.Equal(t, 5*time.Second, s.SimulationTime())
	assert.Equal(t, value.Symbol("new"), sig.Value())
	assert.Equal(t, 5*time.Second, sig.LastAssigned())
}

func TestScheduler_SimulateFor_NoEvents(t *testing.T) {
	s := newTestScheduler()

	elapsed, err := s.SimulateFor(10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), elapsed)
	assert.Equal(t, time.Duration(0), s.SimulationTime())
}

func TestScheduler_SimulateFor_EventAtDeadline(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)
	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), 4*time.Second))

	elapsed, err := s.SimulateFor(4 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, elapsed)
	assert.Equal(t, value.Integer(1), sig.Value())
}

func TestScheduler_SimulateFor_NeverPassesDeadline(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", value.Integer(0))

	// A free-running counter: every change schedules the next one 1s later.
	sig.Subscribe(ListenerFunc(func(sg *Signal, _ value.Value) {
		n := sg.Value().(value.Integer)
		require.NoError(t, s.ScheduleDelayedEvent(sg, n+1, time.Second))
	}))
	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Integer(1)))

	elapsed, err := s.SimulateFor(10*time.Second + 500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second+500*time.Millisecond, elapsed)
	assert.Equal(t, value.Integer(11), sig.Value())
	assert.Equal(t, 1, s.PendingDelayed())
}

func TestScheduler_DelayedTiesBreakByInsertionOrder(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)
	rec := NewTraceRecorder()
	rec.Attach(s)

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), 2*time.Second))
	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(2), time.Second))
	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(3), 2*time.Second))

	_, err := s.SimulateFor(5 * time.Second)
	require.NoError(t, err)

	var values []value.Value
	for _, a := range rec.Assignments() {
		values = append(values, a.Value)
	}
	assert.Equal(t, []value.Value{value.Integer(2), value.Integer(1), value.Integer(3)}, values)
	assert.Equal(t, value.Integer(3), sig.Value())
}

func TestScheduler_ZeroDelayIsDelta(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), 0))
	assert.Equal(t, 1, s.PendingDelta())
	assert.Equal(t, 0, s.PendingDelayed())

	processed, err := s.SimulateInstant()
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, value.Integer(1), sig.Value())
}

func TestScheduler_DeltaEventsRunBeforeDelayedAtSameTime(t *testing.T) {
	s := newTestScheduler()
	a := mustSignal(t, s, "a", nil)
	b := mustSignal(t, s, "b", nil)
	rec := NewTraceRecorder()
	rec.Attach(s)

	require.NoError(t, s.ScheduleDelayedEvent(b, value.Integer(2), time.Second))
	require.NoError(t, s.ScheduleDeltaEvent(a, value.Integer(1)))

	_, err := s.SimulateFor(time.Second)
	require.NoError(t, err)

	got := rec.Assignments()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Signal)
	assert.Equal(t, time.Duration(0), got[0].Time)
	assert.Equal(t, "b", got[1].Signal)
	assert.Equal(t, time.Second, got[1].Time)
}

func TestScheduler_OnProgress(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	var ticks []time.Duration
	s.OnProgress(func(now time.Duration) { ticks = append(ticks, now) })

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), 5*time.Second))
	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(2), 5*time.Second))

	_, err := s.SimulateFor(3 * time.Second)
	require.NoError(t, err)
	_, err = s.SimulateFor(3 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{3 * time.Second, 5 * time.Second}, ticks,
		"one notification per instant boundary")
}

func TestScheduler_SimulateCycles(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)
	for i := 1; i <= 4; i++ {
		require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(int64(i)), time.Duration(i)*time.Second))
	}

	elapsed, err := s.SimulateCycles(2)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, elapsed)
	assert.Equal(t, value.Integer(2), sig.Value())

	elapsed, err = s.SimulateCycles(10)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, elapsed)
	assert.Equal(t, value.Integer(4), sig.Value())
	assert.Equal(t, 4*time.Second, s.SimulationTime())
}

func TestScheduler_ResetSimulationTime(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(1), time.Second))
	_, err := s.SimulateFor(time.Second)
	require.NoError(t, err)

	require.NoError(t, s.ScheduleDelayedEvent(sig, value.Integer(2), time.Second))
	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Integer(3)))

	s.ResetSimulationTime()

	assert.Equal(t, time.Duration(0), s.SimulationTime())
	assert.Equal(t, 0, s.PendingDelta())
	assert.Equal(t, 0, s.PendingDelayed())
	assert.Equal(t, value.Integer(1), sig.Value(), "values survive a reset")
}

func TestScheduler_ResetDuringSimulationPanics(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)
	sig.Subscribe(ListenerFunc(func(*Signal, value.Value) {
		assert.Panics(t, s.ResetSimulationTime)
	}))

	require.NoError(t, s.ScheduleDeltaEvent(sig, value.Integer(1)))
	_, err := s.SimulateInstant()
	require.NoError(t, err)
}

// =============================================================================
// Determinism
// =============================================================================

func TestScheduler_Deterministic(t *testing.T) {
	run := func() []Assignment {
		s := newTestScheduler()
		a := mustSignal(t, s, "a", value.Integer(0))
		b := mustSignal(t, s, "b", value.Integer(0))
		c := mustSignal(t, s, "c", value.Integer(0))
		relay(t, s, a, b)
		relay(t, s, b, c)

		rec := NewTraceRecorder()
		rec.Attach(s)

		for i := 1; i <= 5; i++ {
			require.NoError(t, s.ScheduleDelayedEvent(a, value.Integer(int64(i)), time.Duration(i%3)*time.Second))
			require.NoError(t, s.ScheduleDelayedEvent(c, value.Integer(int64(-i)), time.Duration(i%2)*time.Second))
		}
		_, err := s.SimulateFor(10 * time.Second)
		require.NoError(t, err)
		return rec.Assignments()
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

// =============================================================================
// Errors
// =============================================================================

func TestScheduler_NegativeDelay(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", nil)

	err := s.ScheduleDelayedEvent(sig, value.Integer(1), -time.Second)
	require.Error(t, err)
	assert.True(t, IsInvalidDelay(err))
	assert.Equal(t, 0, s.PendingDelayed())
	assert.Equal(t, 0, s.PendingDelta())

	_, err = s.SimulateFor(-time.Second)
	assert.True(t, IsInvalidDelay(err))

	_, err = s.SimulateCycles(-1)
	assert.True(t, IsInvalidDelay(err))
}

func TestScheduler_InvalidTarget(t *testing.T) {
	s := newTestScheduler()
	other := newTestScheduler()
	foreign := mustSignal(t, other, "foreign", nil)
	removed := mustSignal(t, s, "removed", nil)
	require.NoError(t, s.RemoveSignal(removed))

	tests := []struct {
		name    string
		subject Schedulable
	}{
		{"nil subject", nil},
		{"typed nil signal", (*Signal)(nil)},
		{"foreign signal", foreign},
		{"removed signal", removed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ScheduleDeltaEvent(tt.subject, value.Integer(1))
			require.Error(t, err)
			assert.True(t, IsInvalidTarget(err))

			err = s.ScheduleDelayedEvent(tt.subject, value.Integer(1), time.Second)
			assert.True(t, IsInvalidTarget(err))
		})
	}
	assert.Equal(t, 0, s.PendingDelta())
	assert.Equal(t, 0, s.PendingDelayed())
}

func TestScheduler_DuplicateSignal(t *testing.T) {
	s := newTestScheduler()
	mustSignal(t, s, "S", nil)

	_, err := s.NewSignal("S", nil)
	require.Error(t, err)
	assert.True(t, IsDuplicateSignal(err))

	_, err = s.NewSignal("", nil)
	assert.True(t, IsInvalidTarget(err))
}

func TestScheduler_Divergence_RollsBackInstant(t *testing.T) {
	s := newTestScheduler(WithMaxDeltaCycles(10))
	osc := mustSignal(t, s, "osc", value.Bool(false))
	side := mustSignal(t, s, "side", value.Integer(0))
	rec := NewTraceRecorder()
	rec.Attach(s)

	// A consistent first instant.
	require.NoError(t, s.ScheduleDeltaEvent(side, value.Integer(1)))
	_, err := s.SimulateInstant()
	require.NoError(t, err)

	// Survives the rollback: scheduled before the failing instant.
	require.NoError(t, s.ScheduleDelayedEvent(side, value.Integer(99), 3*time.Second))

	// An inverter feeding itself never settles.
	osc.Subscribe(ListenerFunc(func(sig *Signal, _ value.Value) {
		next := !bool(sig.Value().(value.Bool))
		require.NoError(t, s.ScheduleDeltaEvent(sig, value.Bool(next)))
		require.NoError(t, s.ScheduleDelayedEvent(side, value.Integer(-1), time.Second))
	}))
	require.NoError(t, s.ScheduleDelayedEvent(osc, value.Bool(true), time.Second))

	_, err = s.SimulateFor(5 * time.Second)
	require.Error(t, err)
	assert.True(t, IsDivergent(err))

	var se *SimulationError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, time.Second, se.Time)
	assert.Equal(t, 10, se.DeltaCycles)

	assert.Equal(t, time.Second, s.SimulationTime(), "halts at the failing instant")
	assert.Equal(t, value.Bool(false), osc.Value(), "assignments of the failed instant are undone")
	assert.Equal(t, time.Duration(0), osc.LastAssigned())
	assert.Equal(t, value.Integer(1), side.Value())
	assert.Equal(t, 0, s.PendingDelta())
	assert.Equal(t, 1, s.PendingDelayed(), "only events from completed instants remain")
	assert.Equal(t, 1, rec.Len(), "recorded trace is rolled back too")
}

func TestScheduler_ComputationErrorSkipsEvent(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", value.Integer(5))

	require.NoError(t, s.ScheduleDeltaComputation(sig, func() (value.Value, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, s.ScheduleDeltaComputation(sig, func() (value.Value, error) {
		panic("kaboom")
	}))
	require.NoError(t, s.ScheduleDeltaComputation(sig, func() (value.Value, error) {
		return value.Integer(6), nil
	}))

	processed, err := s.SimulateInstant()
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, value.Integer(6), sig.Value())

	stats := s.Stats()
	assert.Equal(t, 2, stats.ComputeErrors)
	assert.Equal(t, 1, stats.EventsApplied)
}

func TestScheduler_OnErrorReportsDroppedEvents(t *testing.T) {
	s := newTestScheduler()
	sig := mustSignal(t, s, "S", value.Integer(5))

	var failures []error
	s.OnError(func(err error) { failures = append(failures, err) })

	cause := errors.New("boom")
	require.NoError(t, s.ScheduleDeltaComputation(sig, func() (value.Value, error) {
		return nil, cause
	}))
	require.NoError(t, s.ScheduleDelayedComputation(sig, func() (value.Value, error) {
		panic("kaboom")
	}, time.Second))

	_, err := s.SimulateFor(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(5), sig.Value())

	require.Len(t, failures, 2)
	assert.True(t, IsComputationFailed(failures[0]))
	assert.ErrorIs(t, failures[0], cause)

	var se *SimulationError
	require.ErrorAs(t, failures[1], &se)
	assert.Equal(t, "S", se.Signal)
	assert.Equal(t, time.Second, se.Time)
	assert.Contains(t, se.Error(), "computation panicked: kaboom")
}

func TestScheduler_ComputationRunsAtApplication(t *testing.T) {
	s := newTestScheduler()
	src := mustSignal(t, s, "src", value.Integer(1))
	dst := mustSignal(t, s, "dst", nil)

	require.NoError(t, s.ScheduleDelayedComputation(dst, func() (value.Value, error) {
		return src.Value(), nil
	}, time.Second))
	require.NoError(t, s.ScheduleDeltaEvent(src, value.Integer(2)))

	_, err := s.SimulateFor(time.Second)
	require.NoError(t, err)
	assert.Equal(t, value.Integer(2), dst.Value())
}

// =============================================================================
// Signal registry
// =============================================================================

func TestScheduler_RemoveSignal(t *testing.T) {
	s := newTestScheduler()
	a := mustSignal(t, s, "a", nil)
	b := mustSignal(t, s, "b", nil)

	var detached []string
	a.OnRemove(func(sig *Signal) { detached = append(detached, sig.Name()) })
	cancel := a.OnRemove(func(sig *Signal) { detached = append(detached, "cancelled") })
	cancel()
	assert.Equal(t, 1, a.RemoveHookCount())
	require.NoError(t, s.ScheduleDelayedEvent(a, value.Integer(1), time.Second))

	require.NoError(t, s.RemoveSignal(a))
	assert.True(t, a.Removed())
	assert.Equal(t, []string{"a"}, detached)

	_, ok := s.Signal("a")
	assert.False(t, ok)
	assert.Equal(t, []*Signal{b}, s.Signals())

	_, err := s.SimulateFor(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, value.Undefined{}, a.Value(), "pending events for removed signals are skipped")
	assert.Equal(t, 1, s.Stats().EventsSkipped)

	err = s.RemoveSignal(a)
	assert.True(t, IsInvalidTarget(err), "removing twice fails")
}

func TestScheduler_SignalLookup(t *testing.T) {
	s := newTestScheduler()
	a := mustSignal(t, s, "a", value.Integer(3))

	got, ok := s.Signal("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, value.Integer(3), got.Structure())
}

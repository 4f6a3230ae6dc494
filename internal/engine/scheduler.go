package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/deltasim/internal/value"
)

// Scheduler is the single-writer discrete-event loop.
//
// It owns two queues: a FIFO of delta events for the current instant and a
// heap of delayed events keyed by (time, seq). Every signal value change goes
// through one of them.
//
// Thread-safety model: a Scheduler is not safe for concurrent use. All
// scheduling and simulation calls, and every listener they trigger, run on
// the caller's goroutine.
//
// INVARIANTS:
//   - SimulationTime never decreases except through ResetSimulationTime
//   - delta events apply in insertion order
//   - time advances only when the delta queue is empty
type Scheduler struct {
	clock   *Clock
	now     time.Duration
	delta   *deltaQueue
	delayed *delayedQueue
	guard   *deltaGuard

	signals map[string]*Signal
	order   []*Signal // creation order

	maxDeltaCycles int
	logger         *slog.Logger

	// processing is true inside SimulateInstant; applying is true while an
	// event is being applied and its listeners run.
	processing   bool
	applying     bool
	currentDelta int

	// Per-instant rollback journal.
	journal     map[*Signal]journalEntry
	mark        int64
	instantAsgn int

	progress []func(time.Duration)
	assigned []func(Assignment)
	rollback []func(int)
	failed   []func(error)

	stats Stats
}

type journalEntry struct {
	v  value.Value
	at time.Duration
}

// Stats counts scheduler work since construction.
type Stats struct {
	EventsApplied  int `json:"events_applied"`
	EventsSkipped  int `json:"events_skipped"`
	ComputeErrors  int `json:"compute_errors"`
	Instants       int `json:"instants"`
	MaxDeltaCycles int `json:"max_delta_cycles"`
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxDeltaCycles sets the bound on delta cycles per instant.
//
// Default: 1000 (DefaultMaxDeltaCycles). Values below 1 are ignored.
func WithMaxDeltaCycles(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxDeltaCycles = n
		}
	}
}

// WithLogger sets the logger used for instant boundaries and failures.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler at time 0 with empty queues.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		clock:          NewClock(),
		delta:          newDeltaQueue(),
		delayed:        newDelayedQueue(),
		signals:        make(map[string]*Signal),
		maxDeltaCycles: DefaultMaxDeltaCycles,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guard = newDeltaGuard(s.maxDeltaCycles)
	return s
}

// MaxDeltaCycles returns the configured delta-cycle bound.
func (s *Scheduler) MaxDeltaCycles() int { return s.maxDeltaCycles }

// NewSignal registers a signal under a unique name with an initial value.
// A nil initial value becomes Undefined.
func (s *Scheduler) NewSignal(name string, initial value.Value) (*Signal, error) {
	if name == "" {
		return nil, NewInvalidTargetError("", "empty signal name")
	}
	if _, exists := s.signals[name]; exists {
		return nil, &SimulationError{
			Code:    ErrCodeDuplicateSignal,
			Message: "signal already registered",
			Signal:  name,
		}
	}
	sig := &Signal{
		name:    name,
		sched:   s,
		current: value.OrUndefined(initial),
		at:      s.now,
	}
	s.signals[name] = sig
	s.order = append(s.order, sig)
	return sig, nil
}

// RemoveSignal removes sig from the graph. Detach hooks run in registration
// order and listeners are dropped. Pending events targeting sig are skipped
// when they come due.
func (s *Scheduler) RemoveSignal(sig *Signal) error {
	if _, err := s.resolve(sig); err != nil {
		return err
	}
	sig.removed = true
	delete(s.signals, sig.name)
	for i, o := range s.order {
		if o == sig {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	hooks := sig.detach
	sig.detach = nil
	for _, h := range hooks {
		h.fn(sig)
	}
	sig.listeners = nil
	return nil
}

// Signal returns the signal registered under name.
func (s *Scheduler) Signal(name string) (*Signal, bool) {
	sig, ok := s.signals[name]
	return sig, ok
}

// Signals returns every registered signal in creation order.
func (s *Scheduler) Signals() []*Signal {
	out := make([]*Signal, len(s.order))
	copy(out, s.order)
	return out
}

// SimulationTime returns the current simulated time.
func (s *Scheduler) SimulationTime() time.Duration { return s.now }

// PendingDelta returns the number of events queued for the current instant.
func (s *Scheduler) PendingDelta() int { return s.delta.Len() }

// PendingDelayed returns the number of events queued for later instants.
func (s *Scheduler) PendingDelayed() int { return s.delayed.Len() }

// NextEventTime returns the time of the earliest delayed event.
func (s *Scheduler) NextEventTime() (time.Duration, bool) {
	e, ok := s.delayed.Peek()
	return e.Time, ok
}

// Stats returns a snapshot of the work counters.
func (s *Scheduler) Stats() Stats { return s.stats }

// OnProgress registers fn to run each time SimulationTime advances.
func (s *Scheduler) OnProgress(fn func(now time.Duration)) {
	s.progress = append(s.progress, fn)
}

// OnAssign registers fn to run after each applied assignment and before the
// target's listeners are notified.
func (s *Scheduler) OnAssign(fn func(Assignment)) {
	s.assigned = append(s.assigned, fn)
}

// OnRollback registers fn to run when a divergent instant is rolled back.
// fn receives the number of assignments that were undone.
func (s *Scheduler) OnRollback(fn func(undone int)) {
	s.rollback = append(s.rollback, fn)
}

// OnError registers fn to run when an event is dropped because its
// computation failed. fn receives a COMPUTATION_FAILED SimulationError
// wrapping the cause.
func (s *Scheduler) OnError(fn func(err error)) {
	s.failed = append(s.failed, fn)
}

// ScheduleDeltaEvent queues v for subject within the current instant, after
// every event already pending at this instant.
func (s *Scheduler) ScheduleDeltaEvent(subject Schedulable, v value.Value) error {
	return s.ScheduleDeltaComputation(subject, Constant(v))
}

// ScheduleDeltaComputation is ScheduleDeltaEvent with a value computed when
// the event is applied.
func (s *Scheduler) ScheduleDeltaComputation(subject Schedulable, c Computation) error {
	sig, err := s.resolve(subject)
	if err != nil {
		return err
	}
	if c == nil {
		return NewInvalidTargetError(sig.name, "nil computation")
	}
	s.enqueueDelta(sig, c, EventDelta)
	return nil
}

// ScheduleDelayedEvent queues v for subject at SimulationTime + delay.
// A zero delay is a delta event.
func (s *Scheduler) ScheduleDelayedEvent(subject Schedulable, v value.Value, delay time.Duration) error {
	return s.ScheduleDelayedComputation(subject, Constant(v), delay)
}

// ScheduleDelayedComputation is ScheduleDelayedEvent with a value computed
// when the event is applied.
func (s *Scheduler) ScheduleDelayedComputation(subject Schedulable, c Computation, delay time.Duration) error {
	if delay < 0 {
		return NewInvalidDelayError("delay", delay)
	}
	sig, err := s.resolve(subject)
	if err != nil {
		return err
	}
	if c == nil {
		return NewInvalidTargetError(sig.name, "nil computation")
	}
	if delay == 0 {
		s.enqueueDelta(sig, c, EventDelayed)
		return nil
	}
	s.delayed.Push(Event{
		Target:  sig,
		Compute: c,
		Time:    s.now + delay,
		Kind:    EventDelayed,
		Seq:     s.clock.Next(),
	})
	return nil
}

func (s *Scheduler) enqueueDelta(sig *Signal, c Computation, kind EventKind) {
	d := 0
	if s.applying {
		d = s.currentDelta + 1
	}
	s.delta.Enqueue(Event{
		Target:  sig,
		Compute: c,
		Time:    s.now,
		Kind:    kind,
		Seq:     s.clock.Next(),
		Delta:   d,
	})
}

// resolve maps a scheduling subject to a live signal owned by s.
func (s *Scheduler) resolve(subject Schedulable) (*Signal, error) {
	if subject == nil {
		return nil, NewInvalidTargetError("", "nil subject")
	}
	sig := subject.Signal()
	switch {
	case sig == nil:
		return nil, NewInvalidTargetError("", "subject is not bound to a signal")
	case sig.sched != s:
		return nil, NewInvalidTargetError(sig.name, "signal belongs to another scheduler")
	case sig.removed:
		return nil, NewInvalidTargetError(sig.name, "signal was removed")
	}
	return sig, nil
}

// SimulateInstant applies every delta event at the current instant,
// including events scheduled while applying earlier ones, until the delta
// queue is empty. It reports whether any event was processed.
//
// If the delta-cycle bound is exceeded the instant is rolled back: values
// assigned during it are restored, events it produced are discarded and a
// DIVERGENT_SIMULATION error is returned.
func (s *Scheduler) SimulateInstant() (bool, error) {
	if s.processing {
		panic("engine: SimulateInstant called re-entrantly from a listener")
	}
	if s.delta.Len() == 0 {
		return false, nil
	}

	s.processing = true
	defer func() { s.processing = false }()
	s.beginInstant()

	processed := false
	for {
		e, ok := s.delta.TryDequeue()
		if !ok {
			break
		}
		if err := s.guard.Check(s.now, e.Delta); err != nil {
			s.rollbackInstant()
			s.logger.Error("delta cycles diverged",
				"time", s.now,
				"delta_cycles", e.Delta,
				"limit", s.maxDeltaCycles)
			return processed, err
		}
		processed = true
		s.apply(e)
	}

	s.endInstant()
	return processed, nil
}

func (s *Scheduler) beginInstant() {
	s.guard.Reset()
	s.journal = make(map[*Signal]journalEntry)
	s.mark = s.clock.Current()
	s.instantAsgn = 0
}

func (s *Scheduler) endInstant() {
	cycles := s.guard.Cycles()
	s.stats.Instants++
	if cycles > s.stats.MaxDeltaCycles {
		s.stats.MaxDeltaCycles = cycles
	}
	s.logger.Debug("instant resolved",
		"time", s.now,
		"delta_cycles", cycles,
		"assignments", s.instantAsgn)
	s.journal = nil
}

// rollbackInstant restores the state held before the current instant began.
func (s *Scheduler) rollbackInstant() {
	for sig, j := range s.journal {
		sig.restore(j.v, j.at)
	}
	s.delta.Clear()
	mark := s.mark
	dropped := s.delayed.RemoveIf(func(e Event) bool { return e.Seq > mark })
	undone := s.instantAsgn
	s.journal = nil
	s.instantAsgn = 0

	s.logger.Warn("instant rolled back",
		"time", s.now,
		"undone_assignments", undone,
		"dropped_delayed", dropped)
	for _, fn := range s.rollback {
		fn(undone)
	}
}

// apply computes and assigns one event, then notifies observers and
// listeners. Computation failures are logged and the event is skipped.
func (s *Scheduler) apply(e Event) {
	sig := e.Target
	if sig.removed {
		s.stats.EventsSkipped++
		s.logger.Debug("skipping event for removed signal",
			"signal", sig.name,
			"seq", e.Seq)
		return
	}

	s.applying = true
	s.currentDelta = e.Delta
	defer func() { s.applying = false }()

	v, err := s.compute(e)
	if err != nil {
		s.stats.ComputeErrors++
		s.stats.EventsSkipped++
		s.logger.Error("event computation failed",
			"signal", sig.name,
			"seq", e.Seq,
			"time", s.now,
			"error", err)
		failure := &SimulationError{
			Code:    ErrCodeComputation,
			Message: "event computation failed",
			Signal:  sig.name,
			Time:    s.now,
			Err:     err,
		}
		for _, fn := range s.failed {
			fn(failure)
		}
		return
	}

	if _, seen := s.journal[sig]; !seen && s.journal != nil {
		s.journal[sig] = journalEntry{v: sig.current, at: sig.at}
	}
	old := sig.assign(v, s.now)
	s.stats.EventsApplied++
	s.instantAsgn++

	a := Assignment{
		Seq:    e.Seq,
		Time:   s.now,
		Delta:  e.Delta,
		Signal: sig.name,
		Value:  sig.current,
	}
	for _, fn := range s.assigned {
		fn(a)
	}
	sig.notify(old)
}

func (s *Scheduler) compute(e Event) (v value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computation panicked: %v", r)
		}
	}()
	return e.Compute()
}

// SimulateFor runs the simulation for at most span of simulated time and
// returns the time actually simulated. The result is less than span only
// when no events remain; otherwise time advances exactly to the deadline.
func (s *Scheduler) SimulateFor(span time.Duration) (time.Duration, error) {
	if span < 0 {
		return 0, NewInvalidDelayError("span", span)
	}
	start := s.now
	deadline := s.now + span

	for {
		if _, err := s.SimulateInstant(); err != nil {
			return s.now - start, err
		}
		next, ok := s.delayed.Peek()
		if !ok {
			return s.now - start, nil
		}
		if next.Time > deadline {
			s.advanceTo(deadline)
			return span, nil
		}
		s.advanceTo(next.Time)
		s.promote()
	}
}

// SimulateCycles runs the current instant to completion and then advances
// through at most n further instants. It returns the time simulated.
func (s *Scheduler) SimulateCycles(n int) (time.Duration, error) {
	if n < 0 {
		return 0, &SimulationError{
			Code:    ErrCodeInvalidDelay,
			Message: fmt.Sprintf("negative cycle count %d", n),
		}
	}
	start := s.now
	if _, err := s.SimulateInstant(); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		next, ok := s.delayed.Peek()
		if !ok {
			break
		}
		s.advanceTo(next.Time)
		s.promote()
		if _, err := s.SimulateInstant(); err != nil {
			return s.now - start, err
		}
	}
	return s.now - start, nil
}

// promote moves every delayed event due now onto the delta queue, in
// (time, seq) order, as cycle-0 events of the new instant.
func (s *Scheduler) promote() {
	for _, e := range s.delayed.PopDue(s.now) {
		e.Delta = 0
		s.delta.Enqueue(e)
	}
}

func (s *Scheduler) advanceTo(t time.Duration) {
	if t == s.now {
		return
	}
	s.now = t
	s.logger.Debug("simulation time advanced", "time", t)
	for _, fn := range s.progress {
		fn(t)
	}
}

// ResetSimulationTime returns the clock to zero and discards every pending
// event. Signal values are kept. It must not be called while an instant is
// being processed.
func (s *Scheduler) ResetSimulationTime() {
	if s.processing {
		panic("engine: ResetSimulationTime called during simulation")
	}
	s.now = 0
	s.delta.Clear()
	s.delayed.Clear()
	s.clock.Reset()
	s.guard.Reset()
	s.logger.Debug("simulation time reset")
}

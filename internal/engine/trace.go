package engine

import (
	"time"

	"github.com/roach88/deltasim/internal/value"
)

// Assignment records one value assignment applied by the scheduler.
type Assignment struct {
	Seq    int64 // insertion sequence of the applied event
	Time   time.Duration
	Delta  int
	Signal string
	Value  value.Value
}

// TraceRecorder collects assignments in application order.
//
//	rec := engine.NewTraceRecorder()
//	rec.Attach(sched)
type TraceRecorder struct {
	assignments []Assignment
}

// NewTraceRecorder returns an empty recorder.
func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{}
}

// Record appends a.
func (r *TraceRecorder) Record(a Assignment) {
	r.assignments = append(r.assignments, a)
}

// Assignments returns a copy of the recorded assignments.
func (r *TraceRecorder) Assignments() []Assignment {
	out := make([]Assignment, len(r.assignments))
	copy(out, r.assignments)
	return out
}

// Len returns the number of recorded assignments.
func (r *TraceRecorder) Len() int { return len(r.assignments) }

// Reset drops every recorded assignment.
func (r *TraceRecorder) Reset() { r.assignments = r.assignments[:0] }

// Discard drops the last n assignments.
func (r *TraceRecorder) Discard(n int) {
	if n > len(r.assignments) {
		n = len(r.assignments)
	}
	clear(r.assignments[len(r.assignments)-n:])
	r.assignments = r.assignments[:len(r.assignments)-n]
}

// Attach records every assignment applied by s and discards the assignments
// of instants that s rolls back.
func (r *TraceRecorder) Attach(s *Scheduler) {
	s.OnAssign(r.Record)
	s.OnRollback(r.Discard)
}

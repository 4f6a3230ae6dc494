package testutil

import (
	"github.com/roach88/deltasim/internal/engine"
)

// NewScheduler creates a quiet scheduler with a trace recorder attached.
// opts are applied after the logger, so a test may still override it.
func NewScheduler(opts ...engine.SchedulerOption) (*engine.Scheduler, *engine.TraceRecorder) {
	s := engine.NewScheduler(append([]engine.SchedulerOption{engine.WithLogger(DiscardLogger())}, opts...)...)
	rec := engine.NewTraceRecorder()
	rec.Attach(s)
	return s, rec
}

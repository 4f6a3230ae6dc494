package store

import (
	"time"

	"github.com/roach88/deltasim/internal/engine"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusOK        = "ok"
	StatusDivergent = "divergent"
	StatusFailed    = "failed"
)

// Run is one recorded simulation.
type Run struct {
	ID          string        `json:"id"`
	Model       string        `json:"model"`
	ModelHash   string        `json:"model_hash"`
	Span        time.Duration `json:"span_ns"`     // requested simulation span
	EndTime     time.Duration `json:"end_time_ns"` // simulation time when the run stopped
	Assignments int           `json:"assignments"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// Record is a stored assignment.
type Record struct {
	RunID     string
	Ordinal   int
	ValueHash string
	engine.Assignment
}

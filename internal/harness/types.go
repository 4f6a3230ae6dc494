package harness

import (
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/netlist"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace holds the committed assignments in application order.
	// Assignments of rolled-back instants are not included.
	Trace []engine.Assignment `json:"trace"`

	// Final holds every signal's value after the last step, in
	// declaration order.
	Final []netlist.SignalValue `json:"final"`

	// Time is the simulation time after the last step.
	Time time.Duration `json:"time"`

	// Errors holds step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.Assignment{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// FinalValue returns the final value of the named signal.
func (r *Result) FinalValue(name string) (netlist.SignalValue, bool) {
	for _, sv := range r.Final {
		if sv.Name == name {
			return sv, true
		}
	}
	return netlist.SignalValue{}, false
}

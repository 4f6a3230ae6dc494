package engine

import "time"

// DefaultMaxDeltaCycles is the default bound on delta cycles per instant.
const DefaultMaxDeltaCycles = 1000

// deltaGuard bounds the number of delta cycles run at one instant.
//
// A delta cycle is counted by the cycle number of the event being applied:
// externally scheduled and promoted events run in cycle 0, and an event
// scheduled while applying cycle n runs in cycle n+1. Cycle-based counting
// catches feedback loops (A -> B -> A) regardless of how many events each
// cycle carries.
type deltaGuard struct {
	limit   int
	highest int
}

func newDeltaGuard(limit int) *deltaGuard {
	return &deltaGuard{limit: limit}
}

// Check validates the cycle number of the next event at time at.
func (g *deltaGuard) Check(at time.Duration, delta int) error {
	if delta > g.highest {
		g.highest = delta
	}
	if delta >= g.limit {
		return NewDivergentError(at, delta, g.limit)
	}
	return nil
}

// Reset is called at every instant boundary.
func (g *deltaGuard) Reset() {
	g.highest = 0
}

// Cycles returns the number of delta cycles run in the current instant.
func (g *deltaGuard) Cycles() int {
	return g.highest + 1
}

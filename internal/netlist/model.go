// Package netlist holds compiled simulation models and instantiates them.
//
// A Model is plain data: what the CUE compiler produces and what the store
// identifies runs by. Build turns it into a live Simulation with a
// scheduler, network, theorem provider and evaluator.
package netlist

import (
	"time"

	"github.com/roach88/deltasim/internal/graph"
	"github.com/roach88/deltasim/internal/theorem"
	"github.com/roach88/deltasim/internal/value"
)

// Model is a compiled simulation model. Slices are in declaration order,
// which is also instantiation order.
type Model struct {
	Name      string
	Signals   []SignalDecl
	Buses     []BusDecl
	Processes []ProcessDecl
	Theorems  []*theorem.Theorem
	Simplify  []SimplifyDecl
	Stimuli   []Stimulus
	Settings  Settings
}

// SignalDecl declares a signal and its initial value.
type SignalDecl struct {
	Name    string
	Initial value.Value
}

// BusDecl declares a bus and its ports in index order.
type BusDecl struct {
	Name  string
	Ports []PortDecl
}

// PortDecl declares a bus port bound to a signal.
type PortDecl struct {
	Name      string
	Signal    string
	Direction graph.Direction
}

// ProcessDecl declares a process by signal names.
type ProcessDecl struct {
	Name   string
	Output string
	Inputs []string
	Expr   value.Value
	Aspect theorem.Aspect
	Delay  time.Duration
}

// SimplifyDecl marks a signal for automatic simplification.
type SimplifyDecl struct {
	Signal string
	Aspect theorem.Aspect
}

// Stimulus is an externally scheduled assignment at an absolute time.
type Stimulus struct {
	Signal string
	Value  value.Value
	At     time.Duration
}

// Settings carries the run configuration a model may declare.
// Zero values select the package defaults.
type Settings struct {
	MaxDeltaCycles int
	MaxRewrites    int
	NoBuiltins     bool
}

// Package reactive drives signals from other signals.
//
// A Process recomputes an output signal from an expression template whenever
// one of its inputs changes; an auto-simplified signal re-evaluates its own
// value. In both cases the new value is rewritten to a fixpoint with the
// theorem provider and handed to the scheduler as an event. Nothing here
// assigns a signal directly.
package reactive

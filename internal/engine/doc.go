// Package engine implements the deltasim discrete-event scheduler.
//
// The scheduler owns every Signal value cell and two event queues: a FIFO
// queue of delta events for the current instant and a time-ordered queue of
// delayed events keyed by (time, insertion sequence).
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Events are applied one at a time, to completion, on the caller's goroutine.
// There is no parallel event application. This ensures:
//   - A strict, reproducible global order over simultaneous events
//   - Identical assignment traces when an identical schedule is replayed
//   - Propagation triggered by an assignment finishes before the next event
//
// Delta Cycles:
// SimulateInstant drains the delta queue. Applying an event assigns the new
// value to its Signal, which notifies listeners synchronously; listeners may
// schedule further delta events, which are appended to the same queue and
// drained in the same call. Each event carries its delta-cycle number
// (0 for events scheduled from outside, parent+1 for events scheduled while
// an event is being applied). Exceeding the configured bound aborts the
// instant with a DIVERGENT_SIMULATION error and restores the values the
// failed instant assigned.
//
// Time Advance:
// SimulateFor and SimulateCycles alternate between draining the current
// instant and advancing SimulationTime to the earliest delayed event, whose
// events (all of them due at that time, in insertion order) are promoted to
// delta events. Delayed events never overtake pending delta events.
//
// The Scheduler is not safe for concurrent use. Construct one per
// simulation run and drive it from a single goroutine.
package engine

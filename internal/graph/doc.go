// Package graph provides the dataflow graph around engine signals: ports,
// buses and a named registry tying them together.
//
// A Port is a directional endpoint bound to at most one Signal and plugged
// into at most one Bus. A Bus is an ordered sequence of ports; its indices are
// always contiguous from 0 and every structural mutation raises one indexed
// notification per affected port. Value changes on a port's signal are
// re-raised by its bus as indexed PortValueChanged notifications.
//
// Nothing in this package assigns signal values. Ports are schedulable, so a
// caller that wants to drive a port schedules an event on it and the engine
// applies it to the bound signal.
package graph

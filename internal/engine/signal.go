package engine

import (
	"slices"
	"time"

	"github.com/roach88/deltasim/internal/value"
)

// Schedulable is anything that can be the subject of a scheduled event.
// A *Signal schedules itself; a bus port schedules the signal it is bound to.
// A nil result makes the subject invalid.
type Schedulable interface {
	Signal() *Signal
}

// Listener is notified after a Signal's value has been replaced.
//
// Listeners run synchronously inside the scheduler. They must not try to
// change any signal directly; they schedule delta or delayed events instead.
type Listener interface {
	SignalChanged(sig *Signal, old value.Value)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(sig *Signal, old value.Value)

// SignalChanged calls f(sig, old).
func (f ListenerFunc) SignalChanged(sig *Signal, old value.Value) { f(sig, old) }

type listenerEntry struct {
	id int
	l  Listener
}

type detachEntry struct {
	id int
	fn func(*Signal)
}

// Signal is the schedulable unit carrying a value.
//
// INVARIANTS:
//   - value changes only when the owning Scheduler applies an event
//   - listeners are notified in registration order
//   - a removed signal rejects new events and skips pending ones
type Signal struct {
	name    string
	sched   *Scheduler
	current value.Value
	at      time.Duration
	removed bool

	listeners []listenerEntry
	detach    []detachEntry
	nextID    int
}

// Signal returns s itself, so *Signal satisfies Schedulable.
func (s *Signal) Signal() *Signal { return s }

// Name returns the signal's registry name.
func (s *Signal) Name() string { return s.name }

// Value returns the current value; Undefined before the first assignment
// unless the signal was created with an initial value.
func (s *Signal) Value() value.Value { return s.current }

// Structure returns the value that theorem patterns are matched against.
func (s *Signal) Structure() value.Value { return s.current }

// LastAssigned returns the simulation time of the last assignment.
func (s *Signal) LastAssigned() time.Duration { return s.at }

// Removed reports whether the signal has been removed from its scheduler.
func (s *Signal) Removed() bool { return s.removed }

// Subscribe registers l for change notification and returns a function that
// unregisters it. Subscribing during a notification takes effect from the
// next assignment.
func (s *Signal) Subscribe(l Listener) (unsubscribe func()) {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, l: l})
	return func() {
		for i, e := range s.listeners {
			if e.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// OnRemove registers fn to run when the signal is removed from the graph
// and returns a function that unregisters it. Ports use this to leave their
// bus.
func (s *Signal) OnRemove(fn func(*Signal)) (cancel func()) {
	s.nextID++
	id := s.nextID
	s.detach = append(s.detach, detachEntry{id: id, fn: fn})
	return func() {
		s.detach = slices.DeleteFunc(s.detach, func(e detachEntry) bool { return e.id == id })
	}
}

// RemoveHookCount returns the number of registered removal hooks.
func (s *Signal) RemoveHookCount() int { return len(s.detach) }

// ListenerCount returns the number of registered listeners.
func (s *Signal) ListenerCount() int { return len(s.listeners) }

// assign replaces the value and returns the previous one.
// Only the Scheduler calls it.
func (s *Signal) assign(v value.Value, at time.Duration) value.Value {
	old := s.current
	s.current = value.OrUndefined(v)
	s.at = at
	return old
}

// restore puts back a journaled value without notifying anyone.
func (s *Signal) restore(v value.Value, at time.Duration) {
	s.current = v
	s.at = at
}

func (s *Signal) notify(old value.Value) {
	// Snapshot so listeners added or removed during dispatch do not disturb it.
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	for _, e := range snapshot {
		e.l.SignalChanged(s, old)
	}
}

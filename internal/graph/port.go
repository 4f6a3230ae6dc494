package graph

import (
	"errors"
	"fmt"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// Direction is the data direction of a port relative to its owner.
type Direction int

const (
	Input Direction = iota + 1
	Output
	Bidirectional
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	case Bidirectional:
		return "bidirectional"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses "input", "output" or "bidirectional" ("inout" is
// accepted as an alias). An empty string is Bidirectional.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	case "bidirectional", "inout", "":
		return Bidirectional, nil
	}
	return 0, fmt.Errorf("unknown port direction %q", s)
}

// Port is a named connection endpoint.
//
// INVARIANTS:
//   - a port belongs to at most one bus at a time
//   - a port is bound to at most one signal at a time
type Port struct {
	name  string
	dir   Direction
	owner any

	bus    *Bus
	signal *engine.Signal
	unsub  func()
	detach func()
}

// NewPort creates an unbound port. owner is an opaque reference to the
// entity the port belongs to; it may be nil.
func NewPort(name string, dir Direction, owner any) *Port {
	return &Port{name: name, dir: dir, owner: owner}
}

func (p *Port) Name() string         { return p.name }
func (p *Port) Direction() Direction { return p.dir }
func (p *Port) Owner() any           { return p.owner }

// Bus returns the bus the port is plugged into, or nil.
func (p *Port) Bus() *Bus { return p.bus }

// Index returns the port's position in its bus, or -1 when it has none.
func (p *Port) Index() int {
	if p.bus == nil {
		return -1
	}
	return p.bus.IndexOf(p)
}

// Signal returns the bound signal, or nil. Together with the engine this
// makes a bound port a valid scheduling subject.
func (p *Port) Signal() *engine.Signal {
	if p == nil {
		return nil
	}
	return p.signal
}

// Structure returns the bound signal's value, or Undefined when unbound.
func (p *Port) Structure() value.Value {
	if p.signal == nil {
		return value.Undefined{}
	}
	return p.signal.Value()
}

// Connect binds the port to sig, replacing any previous binding. Changes to
// sig are forwarded to the port's bus. When sig is removed from its
// scheduler the port is unbound and leaves its bus.
func (p *Port) Connect(sig *engine.Signal) error {
	if sig == nil {
		return errors.New("connect: nil signal")
	}
	if sig.Removed() {
		return fmt.Errorf("connect %q: signal %q was removed", p.name, sig.Name())
	}
	p.Disconnect()

	p.signal = sig
	p.unsub = sig.Subscribe(engine.ListenerFunc(func(*engine.Signal, value.Value) {
		if p.bus != nil {
			p.bus.emit(BusEvent{Kind: PortValueChanged, Bus: p.bus, Port: p, Index: p.bus.IndexOf(p)})
		}
	}))
	p.detach = sig.OnRemove(func(removed *engine.Signal) {
		if p.signal != removed {
			return
		}
		p.signal = nil
		p.unsub = nil
		p.detach = nil
		if p.bus != nil {
			p.bus.Remove(p)
		}
	})
	return nil
}

// Disconnect unbinds the port from its signal. It is a no-op when unbound.
func (p *Port) Disconnect() {
	if p.unsub != nil {
		p.unsub()
	}
	if p.detach != nil {
		p.detach()
	}
	p.unsub = nil
	p.detach = nil
	p.signal = nil
}

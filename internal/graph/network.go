package graph

import (
	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// Network is the named registry of a simulation's signals, ports and buses.
// Signals, ports and buses share one namespace.
//
// It is constructed once per run and passed to whatever needs to resolve
// names; there is no global registry.
type Network struct {
	sched *engine.Scheduler

	ports     map[string]*Port
	portOrder []*Port
	buses     map[string]*Bus
	busOrder  []*Bus
}

// NewNetwork creates an empty network whose signals live in s.
func NewNetwork(s *engine.Scheduler) *Network {
	return &Network{
		sched: s,
		ports: make(map[string]*Port),
		buses: make(map[string]*Bus),
	}
}

// Scheduler returns the scheduler owning the network's signals.
func (n *Network) Scheduler() *engine.Scheduler { return n.sched }

func (n *Network) taken(name string) error {
	if _, ok := n.sched.Signal(name); ok {
		return &DuplicateNameError{Name: name, Kind: "signal"}
	}
	if _, ok := n.ports[name]; ok {
		return &DuplicateNameError{Name: name, Kind: "port"}
	}
	if _, ok := n.buses[name]; ok {
		return &DuplicateNameError{Name: name, Kind: "bus"}
	}
	return nil
}

// AddSignal creates a signal in the scheduler.
func (n *Network) AddSignal(name string, initial value.Value) (*engine.Signal, error) {
	if err := n.taken(name); err != nil {
		return nil, err
	}
	return n.sched.NewSignal(name, initial)
}

// AddBus creates an empty bus.
func (n *Network) AddBus(name string) (*Bus, error) {
	if err := n.taken(name); err != nil {
		return nil, err
	}
	b := NewBus(name)
	n.buses[name] = b
	n.busOrder = append(n.busOrder, b)
	return b, nil
}

// AddPort creates an unbound port.
func (n *Network) AddPort(name string, dir Direction, owner any) (*Port, error) {
	if err := n.taken(name); err != nil {
		return nil, err
	}
	p := NewPort(name, dir, owner)
	n.ports[name] = p
	n.portOrder = append(n.portOrder, p)
	return p, nil
}

// RemoveSignal removes sig from the scheduler. Ports bound to it are
// unbound and leave their buses.
func (n *Network) RemoveSignal(sig *engine.Signal) error {
	return n.sched.RemoveSignal(sig)
}

// Lookup resolves name to a *engine.Signal, *Port or *Bus.
func (n *Network) Lookup(name string) (any, bool) {
	if sig, ok := n.sched.Signal(name); ok {
		return sig, true
	}
	if p, ok := n.ports[name]; ok {
		return p, true
	}
	if b, ok := n.buses[name]; ok {
		return b, true
	}
	return nil, false
}

// Port returns the port registered under name.
func (n *Network) Port(name string) (*Port, bool) {
	p, ok := n.ports[name]
	return p, ok
}

// Bus returns the bus registered under name.
func (n *Network) Bus(name string) (*Bus, bool) {
	b, ok := n.buses[name]
	return b, ok
}

// Ports returns every port in creation order.
func (n *Network) Ports() []*Port {
	out := make([]*Port, len(n.portOrder))
	copy(out, n.portOrder)
	return out
}

// Buses returns every bus in creation order.
func (n *Network) Buses() []*Bus {
	out := make([]*Bus, len(n.busOrder))
	copy(out, n.busOrder)
	return out
}

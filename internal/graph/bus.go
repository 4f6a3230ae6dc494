package graph

import (
	"slices"

	"github.com/roach88/deltasim/internal/value"
)

// BusEventKind identifies the kind of bus notification.
type BusEventKind int

const (
	// PortAdded: Port was inserted at Index.
	PortAdded BusEventKind = iota + 1
	// PortRemoved: Port was removed from Index.
	PortRemoved
	// PortReindexed: Port moved to Index because of an insert or removal.
	PortReindexed
	// PortValueChanged: the signal bound to Port at Index changed value.
	PortValueChanged
)

func (k BusEventKind) String() string {
	switch k {
	case PortAdded:
		return "port_added"
	case PortRemoved:
		return "port_removed"
	case PortReindexed:
		return "port_reindexed"
	case PortValueChanged:
		return "port_value_changed"
	default:
		return "unknown"
	}
}

// BusEvent is an indexed bus notification.
type BusEvent struct {
	Kind  BusEventKind
	Bus   *Bus
	Port  *Port
	Index int
}

// BusListener receives bus notifications.
type BusListener func(BusEvent)

type busListenerEntry struct {
	id int
	fn BusListener
}

// Bus is an ordered collection of ports forming one wide signal path.
//
// Insertion order is the indexing order. The bus owns index assignment but
// not port lifetime: a removed port may be added to another bus.
type Bus struct {
	name      string
	ports     []*Port
	listeners []busListenerEntry
	nextID    int
}

// NewBus creates an empty bus.
func NewBus(name string) *Bus {
	return &Bus{name: name}
}

func (b *Bus) Name() string { return b.name }
func (b *Bus) Len() int     { return len(b.ports) }

// At returns the port at index i, or nil when i is out of range.
func (b *Bus) At(i int) *Port {
	if i < 0 || i >= len(b.ports) {
		return nil
	}
	return b.ports[i]
}

// Ports returns the ports in index order.
func (b *Bus) Ports() []*Port {
	return slices.Clone(b.ports)
}

// IndexOf returns the index of p, or -1.
func (b *Bus) IndexOf(p *Port) int {
	return slices.Index(b.ports, p)
}

// Structure returns the list of the ports' values in index order.
func (b *Bus) Structure() value.Value {
	vals := make([]value.Value, len(b.ports))
	for i, p := range b.ports {
		vals[i] = p.Structure()
	}
	return value.List(vals)
}

// Subscribe registers fn for notifications and returns its unsubscribe func.
func (b *Bus) Subscribe(fn BusListener) (unsubscribe func()) {
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, busListenerEntry{id: id, fn: fn})
	return func() {
		for i, e := range b.listeners {
			if e.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Add appends p. It fails with DuplicatePortError if p already belongs to
// any bus, this one included.
func (b *Bus) Add(p *Port) error {
	return b.InsertAt(len(b.ports), p)
}

// InsertAt inserts p at index i, shifting later ports up by one. Valid
// indices are 0..Len(). One PortAdded notification is raised for p and one
// PortReindexed for every shifted port.
func (b *Bus) InsertAt(i int, p *Port) error {
	if p.bus != nil {
		return &DuplicatePortError{Port: p.name, Bus: b.name, Held: p.bus.name}
	}
	if i < 0 || i > len(b.ports) {
		return &IndexError{Bus: b.name, Index: i, Max: len(b.ports)}
	}
	b.ports = slices.Insert(b.ports, i, p)
	p.bus = b

	b.emit(BusEvent{Kind: PortAdded, Bus: b, Port: p, Index: i})
	b.reindexFrom(i + 1)
	return nil
}

// RemoveAt removes and returns the port at index i, shifting later ports
// down by one. One PortRemoved notification carries the old index, then one
// PortReindexed per shifted port.
func (b *Bus) RemoveAt(i int) (*Port, error) {
	if i < 0 || i >= len(b.ports) {
		return nil, &IndexError{Bus: b.name, Index: i, Max: len(b.ports) - 1}
	}
	p := b.ports[i]
	b.ports = slices.Delete(b.ports, i, i+1)
	p.bus = nil

	b.emit(BusEvent{Kind: PortRemoved, Bus: b, Port: p, Index: i})
	b.reindexFrom(i)
	return p, nil
}

// Remove removes p and reports whether it was a member.
func (b *Bus) Remove(p *Port) bool {
	i := b.IndexOf(p)
	if i < 0 {
		return false
	}
	_, err := b.RemoveAt(i)
	return err == nil
}

func (b *Bus) reindexFrom(start int) {
	for j := start; j < len(b.ports); j++ {
		b.emit(BusEvent{Kind: PortReindexed, Bus: b, Port: b.ports[j], Index: j})
	}
}

func (b *Bus) emit(ev BusEvent) {
	snapshot := slices.Clone(b.listeners)
	for _, e := range snapshot {
		e.fn(ev)
	}
}

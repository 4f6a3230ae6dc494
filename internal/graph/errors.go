package graph

import (
	"errors"
	"fmt"
)

// DuplicatePortError is returned when a port that already belongs to a bus
// is added to a bus. The target bus is left unchanged.
type DuplicatePortError struct {
	Port string
	Bus  string // target bus
	Held string // bus currently holding the port
}

func (e *DuplicatePortError) Error() string {
	if e.Bus == e.Held {
		return fmt.Sprintf("duplicate port: %q is already in bus %q", e.Port, e.Bus)
	}
	return fmt.Sprintf("duplicate port: %q cannot join bus %q, it belongs to bus %q", e.Port, e.Bus, e.Held)
}

// IsDuplicatePort reports whether err is a DuplicatePortError.
func IsDuplicatePort(err error) bool {
	var e *DuplicatePortError
	return errors.As(err, &e)
}

// IndexError is returned for a bus index outside the valid range.
type IndexError struct {
	Bus   string
	Index int
	Max   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bus %q: index %d out of range [0,%d]", e.Bus, e.Index, e.Max)
}

// IsIndexError reports whether err is an IndexError.
func IsIndexError(err error) bool {
	var e *IndexError
	return errors.As(err, &e)
}

// DuplicateNameError is returned when a network name is already taken.
type DuplicateNameError struct {
	Name string
	Kind string // kind of the existing entry
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("name %q is already used by a %s", e.Name, e.Kind)
}

// IsDuplicateName reports whether err is a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var e *DuplicateNameError
	return errors.As(err, &e)
}

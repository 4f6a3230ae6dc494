package theorem

import (
	"errors"
	"fmt"
)

// NoMatchError is returned by LookupBest when no theorem of the aspect
// matches. It is an expected condition: callers usually keep the value as is.
type NoMatchError struct {
	Aspect Aspect
	Value  string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no theorem of aspect %q matches %s", e.Aspect, e.Value)
}

// IsNoMatch reports whether err is a NoMatchError.
func IsNoMatch(err error) bool {
	var e *NoMatchError
	return errors.As(err, &e)
}

// ConflictError is returned by Add when a different theorem already uses
// the id.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("theorem id %q is already registered", e.ID)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

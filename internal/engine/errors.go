package engine

import (
	"errors"
	"fmt"
	"time"
)

// SimulationErrorCode categorizes scheduler errors.
type SimulationErrorCode string

const (
	// ErrCodeInvalidTarget indicates an event referenced a signal handle the
	// scheduler does not know (nil, removed, or owned by another scheduler).
	ErrCodeInvalidTarget SimulationErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidDelay indicates a negative delay, span or cycle count.
	ErrCodeInvalidDelay SimulationErrorCode = "INVALID_DELAY"

	// ErrCodeDivergent indicates delta-cycle processing did not reach a fixed
	// point within the configured bound.
	ErrCodeDivergent SimulationErrorCode = "DIVERGENT_SIMULATION"

	// ErrCodeDuplicateSignal indicates a signal name is already registered.
	ErrCodeDuplicateSignal SimulationErrorCode = "DUPLICATE_SIGNAL"

	// ErrCodeComputation indicates an event's computation failed or
	// panicked. The event is dropped and the simulation continues.
	ErrCodeComputation SimulationErrorCode = "COMPUTATION_FAILED"
)

// SimulationError is a scheduler error with structured fields for diagnostics.
// Scheduling errors are raised before any state changes; a divergence error
// is raised after the failed instant has been rolled back.
type SimulationError struct {
	Code    SimulationErrorCode
	Message string

	// Signal names the target, when there is one.
	Signal string

	// Time is the simulation time at which the error was detected.
	Time time.Duration

	// DeltaCycles is the number of delta cycles run before divergence.
	DeltaCycles int

	// Err is the underlying cause, when there is one.
	Err error
}

// Error implements the error interface.
func (e *SimulationError) Error() string {
	switch {
	case e.Code == ErrCodeDivergent:
		return fmt.Sprintf("%s: %s (time=%s, delta_cycles=%d)", e.Code, e.Message, e.Time, e.DeltaCycles)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s (signal=%s, time=%s): %v", e.Code, e.Message, e.Signal, e.Time, e.Err)
	case e.Signal != "":
		return fmt.Sprintf("%s: %s (signal=%s)", e.Code, e.Message, e.Signal)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *SimulationError) Unwrap() error { return e.Err }

func hasCode(err error, code SimulationErrorCode) bool {
	var se *SimulationError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsInvalidTarget reports whether err is an INVALID_TARGET error.
// Uses errors.As to handle wrapped errors.
func IsInvalidTarget(err error) bool { return hasCode(err, ErrCodeInvalidTarget) }

// IsInvalidDelay reports whether err is an INVALID_DELAY error.
func IsInvalidDelay(err error) bool { return hasCode(err, ErrCodeInvalidDelay) }

// IsDivergent reports whether err is a DIVERGENT_SIMULATION error.
func IsDivergent(err error) bool { return hasCode(err, ErrCodeDivergent) }

// IsComputationFailed reports whether err is a COMPUTATION_FAILED error.
func IsComputationFailed(err error) bool { return hasCode(err, ErrCodeComputation) }

// IsDuplicateSignal reports whether err is a DUPLICATE_SIGNAL error.
func IsDuplicateSignal(err error) bool { return hasCode(err, ErrCodeDuplicateSignal) }

// NewInvalidTargetError creates a SimulationError for an unknown target.
func NewInvalidTargetError(signal, reason string) *SimulationError {
	return &SimulationError{
		Code:    ErrCodeInvalidTarget,
		Message: reason,
		Signal:  signal,
	}
}

// NewInvalidDelayError creates a SimulationError for a negative duration.
func NewInvalidDelayError(what string, d time.Duration) *SimulationError {
	return &SimulationError{
		Code:    ErrCodeInvalidDelay,
		Message: fmt.Sprintf("%s must not be negative, got %s", what, d),
	}
}

// NewDivergentError creates a SimulationError for a runaway instant.
func NewDivergentError(at time.Duration, cycles, limit int) *SimulationError {
	return &SimulationError{
		Code:        ErrCodeDivergent,
		Message:     fmt.Sprintf("no fixed point within %d delta cycles", limit),
		Time:        at,
		DeltaCycles: cycles,
	}
}

package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/deltasim/internal/engine"
	"github.com/roach88/deltasim/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // Assertion type for categorization
	Expected string              // Human-readable expected outcome
	Actual   string              // Human-readable actual outcome
	Trace    []engine.Assignment // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, a := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s+%d %s = %s\n", i+1, a.Time, a.Delta, a.Signal, value.OrUndefined(a.Value))
		}
	}

	return buf.String()
}

// assertFinalValue checks the value a signal ends with.
func assertFinalValue(result *Result, assertion Assertion) error {
	want, err := value.FromGo(assertion.Value)
	if err != nil {
		return fmt.Errorf("final_value %s: %w", assertion.Signal, err)
	}
	sv, ok := result.FinalValue(assertion.Signal)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", assertion.Signal, want),
			Actual:   "no such signal",
		}
	}
	if !value.Equal(want, value.OrUndefined(sv.Value)) {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %s", assertion.Signal, want),
			Actual:   fmt.Sprintf("%s = %s", assertion.Signal, value.OrUndefined(sv.Value)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks if the trace contains an assignment to the
// signal, narrowed by value and time when given.
func assertTraceContains(trace []engine.Assignment, assertion Assertion) error {
	var want value.Value
	if assertion.Value != nil {
		v, err := value.FromGo(assertion.Value)
		if err != nil {
			return fmt.Errorf("trace_contains %s: %w", assertion.Signal, err)
		}
		want = v
	}
	var at time.Duration
	if assertion.At != "" {
		d, err := parseTime(assertion.At)
		if err != nil {
			return fmt.Errorf("trace_contains %s: %w", assertion.Signal, err)
		}
		at = d
	}

	for _, a := range trace {
		if a.Signal != assertion.Signal {
			continue
		}
		if want != nil && !value.Equal(want, value.OrUndefined(a.Value)) {
			continue
		}
		if assertion.At != "" && a.Time != at {
			continue
		}
		return nil
	}

	expected := "assignment to " + assertion.Signal
	if want != nil {
		expected += fmt.Sprintf(" of %s", want)
	}
	if assertion.At != "" {
		expected += fmt.Sprintf(" at %s", at)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if signals are first assigned in the specified
// order. Other assignments may come in between.
func assertTraceOrder(trace []engine.Assignment, assertion Assertion) error {
	// Step 1: Find first position of each expected signal
	positions := make(map[string]int)
	for i, a := range trace {
		for _, expected := range assertion.Signals {
			if a.Signal == expected && positions[expected] == 0 {
				positions[expected] = i + 1 // 1-indexed for readability
			}
		}
	}

	// Step 2: Verify all signals found
	for _, name := range assertion.Signals {
		if positions[name] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all signals assigned: %v", assertion.Signals),
				Actual:   fmt.Sprintf("missing signal: %s", name),
				Trace:    trace,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Signals); i++ {
		prev := assertion.Signals[i-1]
		curr := assertion.Signals[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("signals in order: %v", assertion.Signals),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks if the signal is assigned exactly the specified number of times.
func assertTraceCount(trace []engine.Assignment, assertion Assertion) error {
	count := 0
	for _, a := range trace {
		if a.Signal == assertion.Signal {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d assignments to %s", assertion.Count, assertion.Signal),
			Actual:   fmt.Sprintf("%d assignments", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertTime checks the simulation time after the last step.
func assertTime(result *Result, assertion Assertion) error {
	want, err := parseTime(assertion.At)
	if err != nil {
		return fmt.Errorf("time: %w", err)
	}
	if result.Time != want {
		return &AssertionError{
			Type:     AssertTime,
			Expected: fmt.Sprintf("simulation time %s", want),
			Actual:   fmt.Sprintf("simulation time %s", result.Time),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalValue:
			err = assertFinalValue(result, assertion)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTime:
			err = assertTime(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

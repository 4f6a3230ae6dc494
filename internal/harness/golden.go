package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/deltasim/internal/value"
)

// Snapshot renders a result as golden text: a header line, one line per
// assignment, one line per final signal value and the final time. Values
// are written as canonical JSON, so equal results render byte-identically.
//
//	scenario half_adder
//	1s+0 sum = false
//	final sum = false
//	time 21s
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s\n", name)
	for i, a := range result.Trace {
		data, err := value.MarshalCanonical(a.Value)
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		fmt.Fprintf(&buf, "%s+%d %s = %s\n", a.Time, a.Delta, a.Signal, data)
	}
	for _, sv := range result.Final {
		data, err := value.MarshalCanonical(sv.Value)
		if err != nil {
			return nil, fmt.Errorf("final %s: %w", sv.Name, err)
		}
		fmt.Fprintf(&buf, "final %s = %s\n", sv.Name, data)
	}
	fmt.Fprintf(&buf, "time %s\n", result.Time)
	return []byte(buf.String()), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against the golden file for
// scenarioName without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)

	return nil
}

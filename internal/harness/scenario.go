package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a simulation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Model is a directory of CUE model files. Relative paths are resolved
	// against the scenario file's directory.
	Model string `yaml:"model,omitempty"`

	// ModelCUE is inline CUE model source, used instead of Model.
	ModelCUE string `yaml:"model_cue,omitempty"`

	// Stimuli are scheduled in addition to the model's own stimuli.
	Stimuli []StimulusStep `yaml:"stimuli,omitempty"`

	// Steps advance the simulation, in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	// Supported types: final_value, trace_contains, trace_order,
	// trace_count, time.
	Assertions []Assertion `yaml:"assertions"`
}

// StimulusStep is an extra assignment scheduled at an absolute time.
type StimulusStep struct {
	Signal string `yaml:"signal"`

	// Value is decoded with value.FromGo; null is undefined.
	Value any `yaml:"value"`

	// At is a Go duration string, e.g. "15ns".
	At string `yaml:"at"`
}

// Step advances the simulation either by a span of time or by a number of
// instants. Exactly one of For and Cycles is set.
type Step struct {
	// For is a Go duration string, e.g. "1us".
	For string `yaml:"for,omitempty"`

	// Cycles is the number of instants to run after the current one.
	Cycles *int `yaml:"cycles,omitempty"`

	// ExpectDivergence marks a step that must fail with a divergent
	// simulation error. The rolled-back instant leaves no trace.
	ExpectDivergence bool `yaml:"expect_divergence,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "final_value": Signal ends with Value
	// - "trace_contains": Signal was assigned (Value and At narrow the match)
	// - "trace_order": Signals were first assigned in this order
	// - "trace_count": Signal was assigned exactly Count times
	// - "time": simulation time ends at At
	Type string `yaml:"type"`

	// Signal is the signal name (final_value, trace_contains, trace_count).
	Signal string `yaml:"signal,omitempty"`

	// Value is the expected value. For trace_contains a missing value
	// matches any assignment; for final_value it means undefined.
	Value any `yaml:"value,omitempty"`

	// At is a Go duration string (trace_contains, time).
	At string `yaml:"at,omitempty"`

	// Count is the expected number of assignments (trace_count).
	Count int `yaml:"count,omitempty"`

	// Signals is the expected first-assignment order (trace_order).
	Signals []string `yaml:"signals,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalValue    = "final_value"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertTime          = "time"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Model path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML. Model paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch {
	case s.Model == "" && s.ModelCUE == "":
		return fmt.Errorf("one of model or model_cue is required")
	case s.Model != "" && s.ModelCUE != "":
		return fmt.Errorf("model and model_cue are mutually exclusive")
	}

	for i, st := range s.Stimuli {
		if st.Signal == "" {
			return fmt.Errorf("stimuli[%d]: signal is required", i)
		}
		if _, err := parseTime(st.At); err != nil {
			return fmt.Errorf("stimuli[%d].at: %w", i, err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps must have at least one step")
	}
	for i, step := range s.Steps {
		if err := validateStep(step, i); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step Step, index int) error {
	switch {
	case step.For == "" && step.Cycles == nil:
		return fmt.Errorf("steps[%d]: one of for or cycles is required", index)
	case step.For != "" && step.Cycles != nil:
		return fmt.Errorf("steps[%d]: for and cycles are mutually exclusive", index)
	case step.Cycles != nil && *step.Cycles < 0:
		return fmt.Errorf("steps[%d]: cycles must be non-negative", index)
	}
	if step.For != "" {
		if _, err := parseTime(step.For); err != nil {
			return fmt.Errorf("steps[%d].for: %w", index, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalValue:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for final_value", index)
		}
	case AssertTraceContains:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for trace_contains", index)
		}
		if a.At != "" {
			if _, err := parseTime(a.At); err != nil {
				return fmt.Errorf("assertions[%d].at: %w", index, err)
			}
		}
	case AssertTraceOrder:
		if len(a.Signals) == 0 {
			return fmt.Errorf("assertions[%d]: signals list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Signal == "" {
			return fmt.Errorf("assertions[%d]: signal is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTime:
		if _, err := parseTime(a.At); err != nil {
			return fmt.Errorf("assertions[%d].at: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseTime parses a non-negative Go duration. "0" is accepted.
func parseTime(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("duration is required")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
